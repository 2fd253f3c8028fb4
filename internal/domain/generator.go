package domain

import "context"

// GenerateOptions tunes a single generation request.
type GenerateOptions struct {
	SystemInstruction string
}

// Generator produces free text from a prompt. Implementations wrap a hosted
// language model; callers treat every error as "no answer".
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
