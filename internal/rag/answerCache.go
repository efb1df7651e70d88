package rag

import (
	"math"
	"sync"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

type cacheEntry struct {
	vector  []float32
	norm    float32
	answer  string
	sources []commonModels.ContextItem
}

// answerCache is a small in-memory semantic cache: a question whose embedding
// is close enough to a cached question reuses its answer. Oldest entries are
// evicted first once the cache fills up.
type answerCache struct {
	mu       sync.RWMutex
	entries  []cacheEntry
	capacity int
	cutoff   float32
}

func newAnswerCache() *answerCache {
	return &answerCache{
		capacity: config.AnswerCacheCapacity,
		cutoff:   config.CacheSimilarityCutoff,
	}
}

func (c *answerCache) Lookup(vector []float32) (string, []commonModels.ContextItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	qNorm := vectorNorm(vector)
	if qNorm == 0 {
		return "", nil, false
	}

	bestScore := float32(-1)
	var best *cacheEntry
	for i := range c.entries {
		e := &c.entries[i]
		if len(e.vector) != len(vector) || e.norm == 0 {
			continue
		}
		score := dotProduct(vector, e.vector) / (qNorm * e.norm)
		if score > bestScore {
			bestScore = score
			best = e
		}
	}

	if best == nil || bestScore < c.cutoff {
		return "", nil, false
	}
	return best.answer, best.sources, true
}

func (c *answerCache) Save(vector []float32, answer string, sources []commonModels.ContextItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.capacity {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, cacheEntry{
		vector:  vector,
		norm:    vectorNorm(vector),
		answer:  answer,
		sources: sources,
	})
}

func (c *answerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func vectorNorm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}
