package generator

import (
	"fmt"

	"github.com/foxseedlab/meetingscribe/internal/config"
	"github.com/foxseedlab/meetingscribe/internal/generator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (generator.Generator, error) {
		c := do.MustInvoke[*config.Config](i)
		return New(c)
	})
}

func New(c *config.Config) (generator.Generator, error) {
	params := generator.DefaultParameters()
	params.MinNewTokens = c.GeneratorMinNewTokens
	params.MaxNewTokens = c.GeneratorMaxNewTokens
	params.RepetitionPenalty = c.GeneratorRepetitionPenalty

	switch c.GeneratorBackend {
	case config.GeneratorBackendWatsonx:
		return NewWatsonxGenerator(WatsonxConfig{
			URL:        c.GeneratorURL,
			APIKey:     c.GeneratorAPIKey,
			ProjectID:  c.GeneratorProjectID,
			ModelID:    c.GeneratorModelID,
			IAMURL:     c.GeneratorIAMURL,
			Parameters: params,
			Timeout:    c.GeneratorTimeout(),
		}), nil
	case config.GeneratorBackendOpenAI:
		return NewOpenAIGenerator(OpenAIConfig{
			URL:        c.GeneratorURL,
			APIKey:     c.GeneratorAPIKey,
			ModelID:    c.GeneratorModelID,
			Parameters: params,
			Timeout:    c.GeneratorTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q", c.GeneratorBackend)
	}
}
