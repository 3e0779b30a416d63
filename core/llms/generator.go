package llms

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned by generators when the model answered without
// any content.
var ErrEmptyResponse = errors.New("language model returned an empty response")

// Generator produces a single text completion for a prompt. Implementations
// make exactly one request per call and never retry.
type Generator interface {
	Generate(ctx context.Context, prompt string, systemInstruction string) (string, error)
}

// GeneratorFunc adapts a plain function to [Generator].
type GeneratorFunc func(ctx context.Context, prompt string, systemInstruction string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, systemInstruction string) (string, error) {
	return f(ctx, prompt, systemInstruction)
}
