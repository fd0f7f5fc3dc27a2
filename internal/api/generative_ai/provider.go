package generativeAI

import "context"

// Provider is one external NLU backend. Generate returns the raw text
// answer to a single prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, prompt string) (string, error)
}

func (p ProviderFunc) Name() string { return p.ProviderName }

func (p ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return p.Fn(ctx, prompt)
}
