package vectorIndex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

// Hit is one nearest-neighbor result.
type Hit struct {
	VectorId string
	Score    float32
}

// Index is a flat cosine-similarity index. All vectors share one fixed
// dimension; search is an exact scan, which is plenty for a corpus of a few
// thousand chunks. Entries keep insertion order, which breaks score ties
// deterministically (earlier entry wins) and makes persistence reproducible
// byte for byte.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   [][]float32
	norms     []float32
	byId      map[string]int
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dimension)
	}
	return &Index{
		dimension: dimension,
		byId:      make(map[string]int),
	}, nil
}

// Add inserts one entry. Vector ids are unique; inserting an existing id is
// an id-assignment bug and fails with ErrDuplicateVectorID.
func (ix *Index) Add(vectorId string, vector []float32) error {
	if len(vector) != ix.dimension {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), ix.dimension)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.byId[vectorId]; exists {
		return fmt.Errorf("%w: %s", commonModels.ErrDuplicateVectorID, vectorId)
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	ix.byId[vectorId] = len(ix.ids)
	ix.ids = append(ix.ids, vectorId)
	ix.vectors = append(ix.vectors, stored)
	ix.norms = append(ix.norms, norm(stored))
	return nil
}

// Search returns up to k hits ordered by descending cosine similarity.
// Searching an empty index returns an empty result, never an error.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dimension)
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	qNorm := norm(query)
	hits := make([]Hit, 0, len(ix.ids))
	for i, id := range ix.ids {
		var score float32
		if qNorm > 0 && ix.norms[i] > 0 {
			score = dot(query, ix.vectors[i]) / (qNorm * ix.norms[i])
		}
		hits = append(hits, Hit{VectorId: id, Score: score})
	}

	// stable sort keeps insertion order for equal scores
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// RemoveBatch drops the given vector ids, preserving the insertion order of
// the remaining entries. Returns how many entries were removed. Unknown ids
// are ignored; re-ingestion uses this to supersede a document's vectors.
func (ix *Index) RemoveBatch(vectorIds []string) int {
	if len(vectorIds) == 0 {
		return 0
	}

	drop := make(map[string]struct{}, len(vectorIds))
	for _, id := range vectorIds {
		drop[id] = struct{}{}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	keep := 0
	for i, id := range ix.ids {
		if _, gone := drop[id]; gone {
			delete(ix.byId, id)
			removed++
			continue
		}
		ix.ids[keep] = id
		ix.vectors[keep] = ix.vectors[i]
		ix.norms[keep] = ix.norms[i]
		ix.byId[id] = keep
		keep++
	}
	ix.ids = ix.ids[:keep]
	ix.vectors = ix.vectors[:keep]
	ix.norms = ix.norms[:keep]
	return removed
}

// Size returns the number of entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Dimension returns the fixed vector dimension of this index.
func (ix *Index) Dimension() int {
	return ix.dimension
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}
