package rag_test

import (
	"context"
	"hash/fnv"
	"strings"
)

// MockLLM implements llm.Provider
type MockLLM struct {
	// Control fields to simulate different behaviors
	OnGenerate func(ctx context.Context, question string, contextBlock string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, question string, contextBlock string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, question, contextBlock)
	}
	return "mocked llm response", nil
}

// MockEmbedder is a deterministic bag-of-words embedder: each token bumps one
// dimension chosen by its hash, so identical text always gets the identical
// vector and verbatim passages score highest against themselves.
type MockEmbedder struct {
	Dim            int
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return m.embed(query), nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		vectors = append(vectors, m.embed(c))
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimension() int {
	return m.Dim
}

func (m *MockEmbedder) embed(text string) []float32 {
	vec := make([]float32, m.Dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(m.Dim)]++
	}
	return vec
}
