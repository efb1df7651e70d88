package vectorIndex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

func mustIndex(t *testing.T, dim int) *Index {
	t.Helper()
	ix, err := New(dim)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", dim, err)
	}
	return ix
}

func mustAdd(t *testing.T, ix *Index, id string, vec []float32) {
	t.Helper()
	if err := ix.Add(id, vec); err != nil {
		t.Fatalf("Add(%s) failed: %v", id, err)
	}
}

func TestNew_RejectsNonPositiveDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		if _, err := New(dim); err == nil {
			t.Errorf("New(%d) expected error, got nil", dim)
		}
	}
}

func TestSearch_DescendingSimilarity(t *testing.T) {
	ix := mustIndex(t, 3)
	mustAdd(t, ix, "far", []float32{0, 1, 0})
	mustAdd(t, ix, "near", []float32{1, 0.1, 0})
	mustAdd(t, ix, "exact", []float32{2, 0, 0})

	hits, err := ix.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []string{"exact", "near", "far"}
	if len(hits) != len(want) {
		t.Fatalf("expected %d hits, got %d", len(want), len(hits))
	}
	for i, id := range want {
		if hits[i].VectorId != id {
			t.Errorf("hit %d: expected %s, got %s", i, id, hits[i].VectorId)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ix := mustIndex(t, 2)
	// identical vectors score identically against any query
	mustAdd(t, ix, "first", []float32{1, 1})
	mustAdd(t, ix, "second", []float32{1, 1})
	mustAdd(t, ix, "third", []float32{2, 2})

	hits, err := ix.Search([]float32{1, 1}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if hits[i].VectorId != id {
			t.Errorf("hit %d: expected %s, got %s", i, id, hits[i].VectorId)
		}
	}
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	ix := mustIndex(t, 4)
	hits, err := ix.Search([]float32{1, 2, 3, 4}, 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestSearch_KLargerThanSize(t *testing.T) {
	ix := mustIndex(t, 2)
	mustAdd(t, ix, "only", []float32{1, 0})

	hits, err := ix.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ix := mustIndex(t, 3)
	if _, err := ix.Search([]float32{1, 0}, 1); err == nil {
		t.Error("expected dimension mismatch error, got nil")
	}
}

func TestAdd_DuplicateIdRejected(t *testing.T) {
	ix := mustIndex(t, 2)
	mustAdd(t, ix, "a", []float32{1, 0})

	err := ix.Add("a", []float32{0, 1})
	if !errors.Is(err, commonModels.ErrDuplicateVectorID) {
		t.Errorf("expected ErrDuplicateVectorID, got %v", err)
	}
	if ix.Size() != 1 {
		t.Errorf("failed Add must not change size, got %d", ix.Size())
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ix := mustIndex(t, 3)
	if err := ix.Add("a", []float32{1, 0}); err == nil {
		t.Error("expected dimension mismatch error, got nil")
	}
}

func TestRemoveBatch_PreservesOrderOfSurvivors(t *testing.T) {
	ix := mustIndex(t, 2)
	mustAdd(t, ix, "a", []float32{1, 1})
	mustAdd(t, ix, "b", []float32{1, 1})
	mustAdd(t, ix, "c", []float32{1, 1})
	mustAdd(t, ix, "d", []float32{1, 1})

	removed := ix.RemoveBatch([]string{"b", "missing", "d"})
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if ix.Size() != 2 {
		t.Errorf("expected size 2, got %d", ix.Size())
	}

	hits, err := ix.Search([]float32{1, 1}, 4)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []string{"a", "c"}
	for i, id := range want {
		if hits[i].VectorId != id {
			t.Errorf("hit %d: expected %s, got %s", i, id, hits[i].VectorId)
		}
	}

	// freed ids can be re-added
	if err := ix.Add("b", []float32{0, 1}); err != nil {
		t.Errorf("re-adding removed id failed: %v", err)
	}
}

func TestPersistLoad_RoundTripIdenticalResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.vdx")

	original := mustIndex(t, 3)
	mustAdd(t, original, "doc1-chunk0", []float32{0.9, 0.1, 0})
	mustAdd(t, original, "doc1-chunk1", []float32{0.2, 0.8, 0.1})
	mustAdd(t, original, "doc2-chunk0", []float32{0.1, 0.1, 0.95})

	if err := original.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Size() != original.Size() {
		t.Fatalf("size changed across round trip: %d vs %d", loaded.Size(), original.Size())
	}
	if loaded.Dimension() != original.Dimension() {
		t.Fatalf("dimension changed across round trip: %d vs %d", loaded.Dimension(), original.Dimension())
	}

	query := []float32{0.5, 0.5, 0.2}
	before, err := original.Search(query, 3)
	if err != nil {
		t.Fatalf("Search before persist failed: %v", err)
	}
	after, err := loaded.Search(query, 3)
	if err != nil {
		t.Fatalf("Search after load failed: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("result count differs: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("hit %d differs across round trip: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestPersist_Deterministic(t *testing.T) {
	dir := t.TempDir()
	ix := mustIndex(t, 2)
	mustAdd(t, ix, "a", []float32{0.5, 0.25})
	mustAdd(t, ix, "b", []float32{0.75, 0.125})

	pathA := filepath.Join(dir, "a.vdx")
	pathB := filepath.Join(dir, "b.vdx")
	if err := ix.Persist(pathA); err != nil {
		t.Fatalf("first Persist failed: %v", err)
	}
	if err := ix.Persist(pathB); err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}

	bytesA, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatalf("reading first file: %v", err)
	}
	bytesB, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatalf("reading second file: %v", err)
	}
	if string(bytesA) != string(bytesB) {
		t.Error("persisting the same index twice produced different bytes")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.vdx"))
	if !errors.Is(err, commonModels.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		data []byte
	}{
		{"bad magic", []byte("NOPE this is not an index")},
		{"truncated header", []byte("LBVX")},
		{"empty file", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".vdx")
			if err := os.WriteFile(path, tc.data, 0o644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := Load(path); !errors.Is(err, commonModels.ErrIndexUnavailable) {
				t.Errorf("expected ErrIndexUnavailable, got %v", err)
			}
		})
	}
}

func TestLoad_TruncatedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.vdx")

	ix := mustIndex(t, 2)
	mustAdd(t, ix, "a", []float32{1, 0})
	mustAdd(t, ix, "b", []float32{0, 1})
	if err := ix.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatalf("writing truncated file: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, commonModels.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestHandle_UnavailableUntilSwap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handle.vdx")

	h, err := Open(path)
	if !errors.Is(err, commonModels.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable from Open, got %v", err)
	}
	if h == nil {
		t.Fatal("Open must return a usable handle even on load failure")
	}
	if h.Available() {
		t.Error("handle should not be available before Swap")
	}
	if _, err := h.Search([]float32{1, 0}, 1); !errors.Is(err, commonModels.ErrIndexUnavailable) {
		t.Errorf("Search on empty handle: expected ErrIndexUnavailable, got %v", err)
	}
	if err := h.Add("a", []float32{1, 0}); !errors.Is(err, commonModels.ErrIndexUnavailable) {
		t.Errorf("Add on empty handle: expected ErrIndexUnavailable, got %v", err)
	}

	ix := mustIndex(t, 2)
	mustAdd(t, ix, "a", []float32{1, 0})
	h.Swap(ix)

	if !h.Available() {
		t.Fatal("handle should be available after Swap")
	}
	hits, err := h.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after Swap failed: %v", err)
	}
	if len(hits) != 1 || hits[0].VectorId != "a" {
		t.Errorf("unexpected hits after Swap: %+v", hits)
	}

	if err := h.Persist(); err != nil {
		t.Fatalf("Persist via handle failed: %v", err)
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open after Persist failed: %v", err)
	}
	if reopened.Size() != 1 {
		t.Errorf("expected 1 entry after reopen, got %d", reopened.Size())
	}
}
