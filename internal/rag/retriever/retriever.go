package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/rag/chunkStore"
	"github.com/legalbot/legalbot/internal/rag/embedding"
	"github.com/legalbot/legalbot/internal/rag/vectorIndex"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var logger = logger_i.NewLogger("retriever")

// Retriever turns a question into ranked, citation-ready context items.
type Retriever struct {
	index    *vectorIndex.Handle
	store    chunkStore.Store
	embedder embedding.Embedder
}

func New(index *vectorIndex.Handle, store chunkStore.Store, embedder embedding.Embedder) *Retriever {
	return &Retriever{
		index:    index,
		store:    store,
		embedder: embedder,
	}
}

// Retrieve embeds the query and returns up to k context items. k <= 0 falls
// back to the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]commonModels.ContextItem, error) {
	vector, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return r.RetrieveVector(ctx, vector, k)
}

// RetrieveVector searches the index with a pre-computed query vector. The
// search over-fetches to survive page-level deduplication and stale index
// references, then truncates to k.
func (r *Retriever) RetrieveVector(ctx context.Context, vector []float32, k int) ([]commonModels.ContextItem, error) {
	if k <= 0 {
		k = config.ConfiguredTopK
	}

	hits, err := r.index.Search(vector, k*config.SearchHeadroomFactor)
	if err != nil {
		return nil, err
	}

	items := make([]commonModels.ContextItem, 0, k)
	seen := make(map[string]struct{}, k)
	for _, hit := range hits {
		chunk, err := r.store.Get(ctx, hit.VectorId)
		if err != nil {
			if errors.Is(err, commonModels.ErrNotFound) {
				// index entry superseded since the last persist, skip it
				logger.Debug("Skipping stale index entry", "vectorId", hit.VectorId)
				continue
			}
			return nil, fmt.Errorf("resolving chunk %s: %w", hit.VectorId, err)
		}

		// one hit per (document, page): hits arrive best first, so the
		// first seen is the one worth keeping
		pageKey := fmt.Sprintf("%s:%d", chunk.Doc.Id, chunk.PageNum)
		if _, dup := seen[pageKey]; dup {
			continue
		}
		seen[pageKey] = struct{}{}

		items = append(items, commonModels.ContextItem{
			ChunkId:       chunk.ChunkId,
			DocumentId:    chunk.Doc.Id,
			DocumentTitle: chunk.Doc.Title,
			Page:          chunk.PageNum,
			Text:          chunk.Text,
			Score:         hit.Score,
		})
		if len(items) == k {
			break
		}
	}
	return items, nil
}

// AssembleContext renders retrieved items as a source-labelled context block
// for the LLM prompt, capped at config.MaxContextChars characters. Items are
// added whole; the first item is truncated if it alone exceeds the cap.
func AssembleContext(items []commonModels.ContextItem) string {
	var b strings.Builder
	total := 0
	for i, item := range items {
		block := fmt.Sprintf("[Source %d: %s, Page %d]\n%s\n\n", i+1, item.DocumentTitle, item.Page, item.Text)
		blockLen := utf8.RuneCountInString(block)
		if total+blockLen > config.MaxContextChars {
			if total == 0 {
				runes := []rune(block)
				if len(runes) > config.MaxContextChars {
					runes = runes[:config.MaxContextChars]
				}
				b.WriteString(string(runes))
			}
			break
		}
		b.WriteString(block)
		total += blockLen
	}
	return strings.TrimRight(b.String(), "\n")
}
