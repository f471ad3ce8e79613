package generator

import (
	"context"
	"errors"
)

var (
	ErrAuthentication    = errors.New("generation authentication failed")
	ErrQuotaOrNetwork    = errors.New("generation quota or network failure")
	ErrMalformedResponse = errors.New("generation response malformed")
	// ErrRejected covers client errors other than authentication, such as an unknown model.
	ErrRejected = errors.New("generation request rejected")
)

const DecodingGreedy = "greedy"

// StopSequence halts generation before the model can open a new delimited block.
const StopSequence = "---"

type Parameters struct {
	DecodingMethod    string
	MinNewTokens      int
	MaxNewTokens      int
	RepetitionPenalty float64
	StopSequences     []string
}

func DefaultParameters() Parameters {
	return Parameters{
		DecodingMethod:    DecodingGreedy,
		MinNewTokens:      1,
		MaxNewTokens:      512,
		RepetitionPenalty: 1.05,
		StopSequences:     []string{StopSequence},
	}
}

// Generator sends a prompt to a remote text-generation model and returns the
// first candidate's generated text unmodified.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
