package transcriber

import (
	"fmt"

	"github.com/foxseedlab/meetingscribe/internal/config"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		return New(c)
	})
}

func New(c *config.Config) (transcriber.Transcriber, error) {
	switch c.TranscriberBackend {
	case config.TranscriberBackendWhisper:
		return NewWhisperTranscriber(WhisperConfig{
			APIKey:   c.WhisperAPIKey,
			BaseURL:  c.WhisperBaseURL,
			Model:    c.WhisperModel,
			Language: c.TranscribeLanguage,
		}), nil
	case config.TranscriberBackendCloudSpeech:
		return NewCloudSpeechTranscriber(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.TranscribeLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown transcriber backend %q", c.TranscriberBackend)
	}
}
