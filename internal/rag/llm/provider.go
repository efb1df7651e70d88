package llm

import "context"

// Provider generates an answer for a question given an assembled context
// block. An empty contextBlock means retrieval found nothing relevant; the
// provider still answers but must say the excerpts were insufficient.
type Provider interface {
	Generate(ctx context.Context, question string, contextBlock string) (string, error)
}
