package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/foxseedlab/meetingscribe/internal/generator"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
	"github.com/google/uuid"
)

var (
	ErrNoTranscript      = errors.New("no transcript available; upload a recording first")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrTranscriptTooLong = errors.New("transcript exceeds the generation model's context budget")
	ErrEmptyTranscript   = errors.New("no speech was recognised in the recording")
)

type Options struct {
	// MaxTranscriptChars rejects longer transcripts before generation. Zero disables the check.
	MaxTranscriptChars int
}

type Transcript struct {
	Text      string
	AudioHash string
	Cached    bool
}

type Answer struct {
	Question       string
	Text           string
	TranscriptHash string
	Cached         bool
}

// Session holds one user's transcript and answer memo tables.
// Collaborator calls run without the session lock held.
type Session struct {
	transcriber        transcriber.Transcriber
	generator          generator.Generator
	maxTranscriptChars int

	transcripts *Cache[string, string]
	answers     *Cache[AnswerKey, string]

	mu             sync.Mutex
	id             string
	epoch          uint64
	transcript     string
	transcriptHash string
	hasTranscript  bool
}

func NewSession(stt transcriber.Transcriber, gen generator.Generator, opts Options) *Session {
	return &Session{
		transcriber:        stt,
		generator:          gen,
		maxTranscriptChars: opts.MaxTranscriptChars,
		transcripts:        NewCache[string, string](),
		answers:            NewCache[AnswerKey, string](),
		id:                 uuid.NewString(),
	}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Transcript returns the current transcript, if any.
func (s *Session) Transcript() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript, s.hasTranscript
}

// Transcribe makes the recording at audioPath the session's current transcript.
// The speech model runs at most once per distinct audio content.
func (s *Session) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("read audio file: %w", err)
	}
	audioHash := ContentHash(data)
	epoch := s.currentEpoch()

	if text, ok := s.transcripts.Get(audioHash); ok {
		slog.Debug("transcript cache hit", "session_id", s.ID(), "audio_sha256", audioHash)
		s.setCurrent(epoch, text)
		return Transcript{Text: text, AudioHash: audioHash, Cached: true}, nil
	}

	slog.Info("transcribing recording", "session_id", s.ID(), "audio_sha256", audioHash, "audio_bytes", len(data))
	text, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Transcript{}, err
	}
	if strings.TrimSpace(text) == "" {
		// Not cached and not made current; the previous transcript stays usable.
		return Transcript{Text: text, AudioHash: audioHash}, ErrEmptyTranscript
	}
	if !s.storeIfCurrent(epoch, func() { s.transcripts.Put(audioHash, text) }) {
		slog.Info("session reset during transcription; discarding result", "audio_sha256", audioHash)
		return Transcript{Text: text, AudioHash: audioHash}, nil
	}
	s.setCurrent(epoch, text)
	return Transcript{Text: text, AudioHash: audioHash}, nil
}

// Ask answers question against the current transcript.
func (s *Session) Ask(ctx context.Context, question string) (Answer, error) {
	transcript, ok := s.Transcript()
	if !ok || strings.TrimSpace(transcript) == "" {
		return Answer{}, ErrNoTranscript
	}
	return s.Answer(ctx, transcript, question)
}

// Answer answers question about transcript, consulting the memo table keyed by
// the transcript content and the exact question text.
func (s *Session) Answer(ctx context.Context, transcript, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}
	key := NewAnswerKey(transcript, question)
	if text, ok := s.answers.Get(key); ok {
		slog.Debug("answer cache hit", "session_id", s.ID(), "transcript_sha256", key.TranscriptHash)
		return Answer{Question: question, Text: text, TranscriptHash: key.TranscriptHash, Cached: true}, nil
	}
	if s.maxTranscriptChars > 0 {
		if n := utf8.RuneCountInString(transcript); n > s.maxTranscriptChars {
			return Answer{}, fmt.Errorf("%w: %d characters, limit %d", ErrTranscriptTooLong, n, s.maxTranscriptChars)
		}
	}

	started := s.snapshot()
	text, err := s.generator.Generate(ctx, BuildPrompt(transcript, question))
	if err != nil {
		return Answer{}, err
	}
	if !s.storeIfUnchanged(started, func() { s.answers.Put(key, text) }) {
		slog.Info("transcript changed during generation; not caching answer", "transcript_sha256", key.TranscriptHash)
	}
	return Answer{Question: question, Text: text, TranscriptHash: key.TranscriptHash}, nil
}

// Reset discards the transcript and every memoized entry and assigns a new session ID.
// Results of calls that were in flight during the reset are not stored.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.id = uuid.NewString()
	s.transcript = ""
	s.transcriptHash = ""
	s.hasTranscript = false
	s.transcripts.Reset()
	s.answers.Reset()
}

func (s *Session) CachedTranscripts() int {
	return s.transcripts.Len()
}

func (s *Session) CachedAnswers() int {
	return s.answers.Len()
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

type sessionState struct {
	epoch          uint64
	transcriptHash string
}

func (s *Session) snapshot() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sessionState{epoch: s.epoch, transcriptHash: s.transcriptHash}
}

// storeIfUnchanged runs store only when neither a reset nor a transcript switch
// happened since started was taken.
func (s *Session) storeIfUnchanged(started sessionState, store func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != started.epoch || s.transcriptHash != started.transcriptHash {
		return false
	}
	store()
	return true
}

func (s *Session) storeIfCurrent(epoch uint64, store func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	store()
	return true
}

// setCurrent switches the current transcript; answers about a previous transcript are dropped.
func (s *Session) setCurrent(epoch uint64, text string) {
	hash := ContentHash([]byte(text))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if s.hasTranscript && s.transcriptHash == hash {
		return
	}
	if s.hasTranscript {
		s.answers.Reset()
	}
	s.transcript = text
	s.transcriptHash = hash
	s.hasTranscript = true
}
