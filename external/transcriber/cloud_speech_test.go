package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
)

func TestTranscriptFromResponse_JoinsFirstAlternatives(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " The budget is over. "}, {Transcript: "ignored"}}},
			{},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "  "}}},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "We will cut scope."}}},
		},
	}
	got := transcriptFromResponse(resp)
	if got != "The budget is over. We will cut scope." {
		t.Fatalf("unexpected transcript: %q", got)
	}
}

func TestCloudSpeech_EndpointAndRecognizer(t *testing.T) {
	global := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "p", Location: ""}).(*CloudSpeechTranscriber)
	if global.endpoint() != "" {
		t.Fatalf("expected default endpoint for global, got %q", global.endpoint())
	}
	if global.recognizer() != "projects/p/locations/global/recognizers/_" {
		t.Fatalf("unexpected recognizer: %s", global.recognizer())
	}

	regional := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "p", Location: " us-central1 "}).(*CloudSpeechTranscriber)
	if regional.endpoint() != "us-central1-speech.googleapis.com:443" {
		t.Fatalf("unexpected endpoint: %s", regional.endpoint())
	}
}

func TestCloudSpeech_RecognizeRequestUsesAutoDecoding(t *testing.T) {
	stt := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "p", Language: "en-US", Model: "long"}).(*CloudSpeechTranscriber)
	req := stt.recognizeRequest([]byte("audio"))

	if req.GetConfig().GetAutoDecodingConfig() == nil {
		t.Fatal("expected auto decoding config")
	}
	if got := req.GetConfig().GetLanguageCodes(); len(got) != 1 || got[0] != "en-US" {
		t.Fatalf("unexpected language codes: %v", got)
	}
	if string(req.GetContent()) != "audio" {
		t.Fatal("expected inline audio content")
	}
}

func TestCloudSpeech_RejectsOversizedAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	if err := os.WriteFile(path, make([]byte, maxInlineAudioBytes+1), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	stt := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "p", Language: "en-US"})
	if _, err := stt.Transcribe(context.Background(), path); !errors.Is(err, transcriber.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}
