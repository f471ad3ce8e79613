package session

import (
	"github.com/foxseedlab/meetingscribe/internal/assistant"
	"github.com/foxseedlab/meetingscribe/internal/config"
	"github.com/foxseedlab/meetingscribe/internal/discord"
	"github.com/foxseedlab/meetingscribe/internal/generator"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
	"github.com/foxseedlab/meetingscribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (SessionFactory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		gen := do.MustInvoke[generator.Generator](i)
		opts := assistant.Options{MaxTranscriptChars: cfg.MaxTranscriptChars}
		return func() *assistant.Session {
			return assistant.NewSession(stt, gen, opts)
		}, nil
	})
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		wh := do.MustInvoke[webhook.Sender](i)
		newSession := do.MustInvoke[SessionFactory](i)
		return NewManager(cfg, dc, wh, newSession), nil
	})
}
