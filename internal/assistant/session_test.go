package assistant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/foxseedlab/meetingscribe/internal/generator"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
)

type mockTranscriber struct {
	mu      sync.Mutex
	calls   int
	text    map[string]string
	err     error
	onCall  func()
	lastArg string
}

func (m *mockTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastArg = audioPath
	onCall := m.onCall
	m.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if m.err != nil {
		return "", m.err
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}
	if text, ok := m.text[string(data)]; ok {
		return text, nil
	}
	return "transcript of " + string(data), nil
}

func (m *mockTranscriber) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	answer  string
	errs    []error
	onCall  func()
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if m.onCall != nil {
		m.onCall()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if m.answer != "" {
		return m.answer, nil
	}
	return fmt.Sprintf("answer #%d", m.calls), nil
}

func writeAudio(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write audio fixture: %v", err)
	}
	return path
}

func TestSession_MainTopicScenario(t *testing.T) {
	const transcript = "The team discussed budget overruns on Project X and agreed to cut scope."
	const question = "What is the main topic?"
	gen := &mockGenerator{answer: "Budget overruns on Project X."}
	s := NewSession(&mockTranscriber{}, gen, Options{})

	got, err := s.Answer(context.Background(), transcript, question)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Budget overruns on Project X." {
		t.Fatalf("expected answer returned unmodified, got %q", got.Text)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generator call, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	for _, want := range []string{"--- TRANSCRIPT ---", "--- END TRANSCRIPT ---", "--- QUESTION ---", "--- END QUESTION ---", transcript, question} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestSession_RefusalPassesThrough(t *testing.T) {
	gen := &mockGenerator{answer: RefusalPhrase}
	s := NewSession(&mockTranscriber{}, gen, Options{})

	got, err := s.Answer(context.Background(), "We talked about lunch.", "What is the revenue forecast?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != RefusalPhrase {
		t.Fatalf("expected refusal phrase unchanged, got %q", got.Text)
	}
}

func TestSession_AnswerIsMemoized(t *testing.T) {
	gen := &mockGenerator{}
	s := NewSession(&mockTranscriber{}, gen, Options{})
	ctx := context.Background()

	first, err := s.Answer(ctx, "T", "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Answer(ctx, "T", "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected a single generator call, got %d", gen.calls)
	}
	if first.Text != second.Text || first.Cached || !second.Cached {
		t.Fatalf("unexpected answers: %+v / %+v", first, second)
	}
}

func TestSession_AnswerKeyIncludesTranscript(t *testing.T) {
	gen := &mockGenerator{}
	s := NewSession(&mockTranscriber{}, gen, Options{})
	ctx := context.Background()

	if _, err := s.Answer(ctx, "T1", "Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Answer(ctx, "T2", "Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected two generator calls, got %d", gen.calls)
	}
	if s.CachedAnswers() != 2 {
		t.Fatalf("expected two cache entries, got %d", s.CachedAnswers())
	}
}

func TestSession_FailedGenerationIsNotCached(t *testing.T) {
	transportErr := fmt.Errorf("%w: connection reset", generator.ErrQuotaOrNetwork)
	gen := &mockGenerator{errs: []error{transportErr}}
	s := NewSession(&mockTranscriber{}, gen, Options{})
	ctx := context.Background()

	_, err := s.Answer(ctx, "T", "Q")
	if !errors.Is(err, generator.ErrQuotaOrNetwork) {
		t.Fatalf("expected quota/network error, got %v", err)
	}
	if s.CachedAnswers() != 0 {
		t.Fatalf("expected empty answer cache after failure, got %d", s.CachedAnswers())
	}
	if _, err := s.Answer(ctx, "T", "Q"); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected the generator to be invoked again, got %d calls", gen.calls)
	}
}

func TestSession_AskRequiresTranscript(t *testing.T) {
	s := NewSession(&mockTranscriber{}, &mockGenerator{}, Options{})
	if _, err := s.Ask(context.Background(), "Q"); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
}

func TestSession_EmptyQuestionRejected(t *testing.T) {
	gen := &mockGenerator{}
	s := NewSession(&mockTranscriber{}, gen, Options{})
	if _, err := s.Answer(context.Background(), "T", "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("expected no generator call for an empty question")
	}
}

func TestSession_TranscriptTooLongRejected(t *testing.T) {
	gen := &mockGenerator{}
	s := NewSession(&mockTranscriber{}, gen, Options{MaxTranscriptChars: 5})

	_, err := s.Answer(context.Background(), "123456", "Q")
	if !errors.Is(err, ErrTranscriptTooLong) {
		t.Fatalf("expected ErrTranscriptTooLong, got %v", err)
	}
	if gen.calls != 0 || s.CachedAnswers() != 0 {
		t.Fatal("expected no generator call and no cache entry")
	}
	if _, err := s.Answer(context.Background(), "12345", "Q"); err != nil {
		t.Fatalf("expected transcript at the limit to pass, got %v", err)
	}
}

func TestSession_TranscribeIsMemoizedByContent(t *testing.T) {
	stt := &mockTranscriber{}
	s := NewSession(stt, &mockGenerator{}, Options{})
	ctx := context.Background()

	a := writeAudio(t, "meeting.mp3", "audio-bytes-1")
	b := writeAudio(t, "copy-of-meeting.mp3", "audio-bytes-1")

	first, err := s.Transcribe(ctx, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Transcribe(ctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.callCount() != 1 {
		t.Fatalf("expected one transcription for identical content, got %d", stt.callCount())
	}
	if first.Cached || !second.Cached || first.Text != second.Text {
		t.Fatalf("unexpected transcripts: %+v / %+v", first, second)
	}
	text, ok := s.Transcript()
	if !ok || text != "transcript of audio-bytes-1" {
		t.Fatalf("unexpected current transcript: %q %v", text, ok)
	}
}

func TestSession_SameNameDifferentContentIsTranscribedAgain(t *testing.T) {
	stt := &mockTranscriber{}
	s := NewSession(stt, &mockGenerator{}, Options{})
	ctx := context.Background()

	path := writeAudio(t, "meeting.mp3", "first recording")
	if _, err := s.Transcribe(ctx, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte("second recording"), 0o600); err != nil {
		t.Fatalf("failed to overwrite fixture: %v", err)
	}
	got, err := s.Transcribe(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.callCount() != 2 {
		t.Fatalf("expected a second transcription, got %d calls", stt.callCount())
	}
	if got.Text != "transcript of second recording" {
		t.Fatalf("unexpected transcript: %q", got.Text)
	}
}

func TestSession_FailedTranscriptionIsNotCached(t *testing.T) {
	stt := &mockTranscriber{err: fmt.Errorf("%w: unsupported codec", transcriber.ErrTranscription)}
	s := NewSession(stt, &mockGenerator{}, Options{})
	path := writeAudio(t, "broken.wav", "garbage")

	if _, err := s.Transcribe(context.Background(), path); !errors.Is(err, transcriber.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if s.CachedTranscripts() != 0 {
		t.Fatal("expected no cached transcript after failure")
	}
	if _, ok := s.Transcript(); ok {
		t.Fatal("expected no current transcript after failure")
	}

	stt.err = nil
	if _, err := s.Transcribe(context.Background(), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.callCount() != 2 {
		t.Fatalf("expected the transcriber to be invoked again, got %d", stt.callCount())
	}
}

func TestSession_NewTranscriptDropsOldAnswers(t *testing.T) {
	gen := &mockGenerator{}
	s := NewSession(&mockTranscriber{}, gen, Options{})
	ctx := context.Background()

	if _, err := s.Transcribe(ctx, writeAudio(t, "a.mp3", "one")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Ask(ctx, "Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Transcribe(ctx, writeAudio(t, "b.mp3", "two")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CachedAnswers() != 0 {
		t.Fatalf("expected answers for the previous transcript to be dropped, got %d", s.CachedAnswers())
	}
	got, err := s.Ask(ctx, "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cached || gen.calls != 2 {
		t.Fatalf("expected a fresh generation, got cached=%v calls=%d", got.Cached, gen.calls)
	}
	if !strings.Contains(gen.prompts[1], "\ntranscript of two\n") {
		t.Fatal("expected the second prompt to use the new transcript")
	}
}

func TestSession_ResetClearsEverything(t *testing.T) {
	stt := &mockTranscriber{}
	gen := &mockGenerator{}
	s := NewSession(stt, gen, Options{})
	ctx := context.Background()
	path := writeAudio(t, "a.mp3", "one")

	if _, err := s.Transcribe(ctx, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Ask(ctx, "Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idBefore := s.ID()

	s.Reset()

	if s.ID() == idBefore {
		t.Fatal("expected a new session id after reset")
	}
	if _, ok := s.Transcript(); ok {
		t.Fatal("expected no transcript after reset")
	}
	if s.CachedTranscripts() != 0 || s.CachedAnswers() != 0 {
		t.Fatalf("expected empty caches, got %d/%d", s.CachedTranscripts(), s.CachedAnswers())
	}
	if _, err := s.Ask(ctx, "Q"); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript after reset, got %v", err)
	}
	if _, err := s.Transcribe(ctx, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.callCount() != 2 {
		t.Fatalf("expected transcription to run again after reset, got %d", stt.callCount())
	}
}

func TestSession_ResetDuringTranscriptionDiscardsResult(t *testing.T) {
	stt := &mockTranscriber{}
	s := NewSession(stt, &mockGenerator{}, Options{})
	stt.onCall = s.Reset

	if _, err := s.Transcribe(context.Background(), writeAudio(t, "a.mp3", "one")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CachedTranscripts() != 0 {
		t.Fatal("expected the in-flight result to be discarded")
	}
	if _, ok := s.Transcript(); ok {
		t.Fatal("expected no current transcript")
	}
}

func TestSession_SilentRecordingKeepsPreviousTranscript(t *testing.T) {
	stt := &mockTranscriber{text: map[string]string{"silence": "  \n"}}
	gen := &mockGenerator{}
	s := NewSession(stt, gen, Options{})
	ctx := context.Background()

	if _, err := s.Transcribe(ctx, writeAudio(t, "a.mp3", "speech")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Ask(ctx, "Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	silent := writeAudio(t, "b.mp3", "silence")
	if _, err := s.Transcribe(ctx, silent); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	text, ok := s.Transcript()
	if !ok || text != "transcript of speech" {
		t.Fatalf("expected previous transcript to stay current, got %q %v", text, ok)
	}
	if s.CachedTranscripts() != 1 || s.CachedAnswers() != 1 {
		t.Fatalf("expected caches untouched, got %d/%d", s.CachedTranscripts(), s.CachedAnswers())
	}
	got, err := s.Ask(ctx, "Q")
	if err != nil || !got.Cached || gen.calls != 1 {
		t.Fatalf("expected cached answer for the previous transcript, got %+v err=%v calls=%d", got, err, gen.calls)
	}

	if _, err := s.Transcribe(ctx, silent); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript again, got %v", err)
	}
	if stt.callCount() != 3 {
		t.Fatalf("expected the empty result not to be memoized, got %d calls", stt.callCount())
	}
}

func TestSession_SilentFirstRecordingLeavesNoTranscript(t *testing.T) {
	stt := &mockTranscriber{text: map[string]string{"silence": ""}}
	gen := &mockGenerator{}
	s := NewSession(stt, gen, Options{})
	ctx := context.Background()

	if _, err := s.Transcribe(ctx, writeAudio(t, "a.mp3", "silence")); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	if _, err := s.Ask(ctx, "Q"); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generation, got %d calls", gen.calls)
	}
}

func TestSession_TranscriptSwitchDuringGenerationSkipsCache(t *testing.T) {
	gen := &mockGenerator{}
	s := NewSession(&mockTranscriber{}, gen, Options{})
	ctx := context.Background()

	if _, err := s.Transcribe(ctx, writeAudio(t, "a.mp3", "one")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := writeAudio(t, "b.mp3", "two")
	gen.onCall = func() {
		gen.onCall = nil
		if _, err := s.Transcribe(ctx, second); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if _, err := s.Ask(ctx, "Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CachedAnswers() != 0 {
		t.Fatalf("expected the stale answer not to be cached, got %d", s.CachedAnswers())
	}
	got, err := s.Ask(ctx, "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cached || gen.calls != 2 || !strings.Contains(gen.prompts[1], "\ntranscript of two\n") {
		t.Fatalf("expected a fresh answer about the new transcript, got cached=%v calls=%d", got.Cached, gen.calls)
	}
}
