package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foxseedlab/meetingscribe/internal/assistant"
	"github.com/foxseedlab/meetingscribe/internal/generator"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
)

// Discord rejects message content longer than 2000 characters.
const discordMessageLimit = 2000

const (
	slashCommandUploadDescription = "Upload a meeting recording (MP3, WAV, MP4, M4A) to transcribe."
	slashCommandAskDescription    = "Ask a question about the current meeting transcript."
	slashCommandResetDescription  = "Forget the current transcript and answers so a new file can be processed."
	optionFileDescription         = "Meeting audio or video file"
	optionQuestionDescription     = "Your question about the meeting"

	messageEphemeralWrongGuild      = ":warning: **This command is not available in this server.**"
	messageEphemeralUnknownCommand  = ":warning: **Unknown command.**"
	messageEphemeralMissingFile     = ":warning: **Attach a recording to upload.**"
	messageEphemeralMissingQuestion = ":warning: **Enter a question about the meeting.**"
	messageEphemeralBusy            = ":hourglass: **Still working on the previous request in this channel. Try again when it finishes.**"

	messageResetDone = ":arrows_counterclockwise: **Session reset.** Upload a new file with /scribe-upload."

	messageTranscriptAttachment = ":page_facing_up: **Meeting transcript**"
	messageAnswerAttachment     = ":speech_balloon: **The answer is attached.**"
)

func unsupportedFileMessage(filename string) string {
	return fmt.Sprintf(":warning: **%s is not a supported file type.** Use MP3, WAV, MP4 or M4A.", filename)
}

func fileTooLargeMessage(maxMB int) string {
	return fmt.Sprintf(":warning: **The file is larger than %d MB.**", maxMB)
}

func transcribedMessage(filename string, transcript assistant.Transcript) string {
	if transcript.Cached {
		return fmt.Sprintf(":white_check_mark: **%s was already processed.** Ask a question with /scribe-ask.", filename)
	}
	return fmt.Sprintf(":white_check_mark: **%s processed successfully** (%d characters). Ask a question with /scribe-ask.", filename, len([]rune(transcript.Text)))
}

func emptyTranscriptMessage(filename string) string {
	return fmt.Sprintf(":warning: **No speech was recognised in %s.**", filename)
}

func answerMessage(question, answer string) string {
	return fmt.Sprintf("**Question:** %s\n\n**Answer:** %s", question, answer)
}

func answerAttachment(question, answer string) []byte {
	return []byte("Question: " + question + "\n\nAnswer: " + answer + "\n")
}

// failureMessage turns a stage error into a user-facing line without leaking
// credentials or raw response bodies.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, assistant.ErrNoTranscript):
		return ":warning: **No transcript yet.** Upload a recording with /scribe-upload first."
	case errors.Is(err, assistant.ErrEmptyQuestion):
		return messageEphemeralMissingQuestion
	case errors.Is(err, assistant.ErrEmptyTranscript):
		return ":warning: **No speech was recognised in the recording.**"
	case errors.Is(err, assistant.ErrTranscriptTooLong):
		return ":warning: **The transcript is too long for the language model.** Try a shorter recording."
	case errors.Is(err, transcriber.ErrTranscription):
		return ":x: **The recording could not be transcribed.** Check that the file is a valid audio or video file."
	case errors.Is(err, generator.ErrAuthentication):
		return ":x: **The language model rejected the configured credentials.**"
	case errors.Is(err, generator.ErrQuotaOrNetwork):
		return ":x: **The language model is unreachable or rate limited.** Try again later."
	case errors.Is(err, generator.ErrMalformedResponse):
		return ":x: **The language model returned an unexpected response.**"
	case errors.Is(err, generator.ErrRejected):
		return ":x: **The language model rejected the request.**"
	default:
		return ":x: **Something went wrong while processing the request.**"
	}
}

func fitsInMessage(content string) bool {
	return len([]rune(content)) <= discordMessageLimit && strings.TrimSpace(content) != ""
}
