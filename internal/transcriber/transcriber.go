package transcriber

import (
	"context"
	"errors"
)

// ErrTranscription reports that the speech model could not turn the input into text.
var ErrTranscription = errors.New("transcription failed")

// Transcriber turns a readable audio or video file into its full utterance text,
// without timestamps or speaker labels.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
