package vectorIndex

import (
	"sync"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

// Handle is the process-wide access point to the current index. The ingestion
// pipeline swaps in a fresh index after a rebuild while queries keep reading
// the old one; a Handle with no index yet (load failed at startup, nothing
// ingested) reports ErrIndexUnavailable from every operation that needs one.
type Handle struct {
	mu   sync.RWMutex
	idx  *Index
	path string
}

// Open loads the index persisted at path. When the file is missing or
// corrupt it returns a usable empty handle alongside ErrIndexUnavailable so
// the caller can choose between failing fast and starting without an index.
func Open(path string) (*Handle, error) {
	h := &Handle{path: path}
	idx, err := Load(path)
	if err != nil {
		return h, err
	}
	h.idx = idx
	return h, nil
}

// NewHandle wraps an already-built index, used by tests and by startup paths
// that build the index before serving.
func NewHandle(idx *Index, path string) *Handle {
	return &Handle{idx: idx, path: path}
}

// Available reports whether an index is currently attached.
func (h *Handle) Available() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx != nil
}

// Swap atomically replaces the attached index. In-flight searches finish
// against the index they started with.
func (h *Handle) Swap(idx *Index) {
	h.mu.Lock()
	h.idx = idx
	h.mu.Unlock()
}

func (h *Handle) current() (*Index, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.idx == nil {
		return nil, commonModels.ErrIndexUnavailable
	}
	return h.idx, nil
}

func (h *Handle) Search(query []float32, k int) ([]Hit, error) {
	idx, err := h.current()
	if err != nil {
		return nil, err
	}
	return idx.Search(query, k)
}

func (h *Handle) Add(vectorId string, vector []float32) error {
	idx, err := h.current()
	if err != nil {
		return err
	}
	return idx.Add(vectorId, vector)
}

func (h *Handle) RemoveBatch(vectorIds []string) (int, error) {
	idx, err := h.current()
	if err != nil {
		return 0, err
	}
	return idx.RemoveBatch(vectorIds), nil
}

// Persist writes the attached index to the handle's configured path.
func (h *Handle) Persist() error {
	idx, err := h.current()
	if err != nil {
		return err
	}
	return idx.Persist(h.path)
}

// Size returns the number of indexed vectors, zero when no index is attached.
func (h *Handle) Size() int {
	idx, err := h.current()
	if err != nil {
		return 0
	}
	return idx.Size()
}

// Dimension returns the attached index's vector dimension, zero when no
// index is attached.
func (h *Handle) Dimension() int {
	idx, err := h.current()
	if err != nil {
		return 0
	}
	return idx.Dimension()
}

// Path returns the file path this handle persists to.
func (h *Handle) Path() string {
	return h.path
}
