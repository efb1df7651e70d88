package embedding

import "context"

// Embedder maps text to fixed-dimension dense vectors. Implementations are
// deterministic for a fixed model version: identical text yields identical
// vectors. Batching strategy is an implementation detail.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)

	// Dimension reports the vector size of the configured model. Vectors of
	// any other dimension must never enter the index this embedder feeds.
	Dimension() int
}
