package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/rag/chunker"
	"github.com/legalbot/legalbot/internal/rag/chunkStore"
	"github.com/legalbot/legalbot/internal/rag/chunkStore/sqliteStore"
	"github.com/legalbot/legalbot/internal/rag/vectorIndex"
)

// hashEmbedder is a deterministic bag-of-words embedder for tests: each
// token bumps one dimension chosen by its hash, so identical text always
// maps to the identical vector.
type hashEmbedder struct {
	dim int
}

func (e *hashEmbedder) GetEmbedding(_ context.Context, query string) ([]float32, error) {
	return e.embed(query), nil
}

func (e *hashEmbedder) BatchEmbedding(_ context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		vectors = append(vectors, e.embed(c))
	}
	return vectors, nil
}

func (e *hashEmbedder) Dimension() int {
	return e.dim
}

func (e *hashEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	return vec
}

func newTestPipeline(t *testing.T) (*Pipeline, *sqliteStore.Store, *vectorIndex.Handle, string) {
	t.Helper()
	dir := t.TempDir()

	store, err := sqliteStore.NewStore(filepath.Join(dir, "chunks.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	indexPath := filepath.Join(dir, "index.vdx")
	handle, _ := vectorIndex.Open(indexPath) // no file yet, starts unavailable

	splitter, err := chunker.New(100, 20)
	if err != nil {
		t.Fatalf("chunker.New failed: %v", err)
	}

	p := NewPipeline(store, handle, &hashEmbedder{dim: 32}, splitter)
	return p, store, handle, indexPath
}

func writeTextFile(t *testing.T, dir, name, content string) FileRef {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return FileRef{Filename: name, Path: path}
}

const statuteText = "Section 302 of the Indian Penal Code provides the punishment for murder. " +
	"Whoever commits murder shall be punished with death or imprisonment for life and shall also be liable to fine. " +
	"The provision distinguishes murder from culpable homicide not amounting to murder, which Section 304 covers separately."

func TestIngestFile_TextDocument(t *testing.T) {
	p, store, handle, indexPath := newTestPipeline(t)
	ctx := context.Background()

	ref := writeTextFile(t, t.TempDir(), "penal_code.txt", statuteText)
	report := p.IngestFile(ctx, ref)

	if report.Error != "" {
		t.Fatalf("unexpected ingest error: %s", report.Error)
	}
	if report.Skipped {
		t.Fatal("document should not be skipped")
	}
	if report.Chunks == 0 {
		t.Fatal("expected at least one chunk")
	}
	if report.DocumentId == "" {
		t.Fatal("report missing document id")
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks failed: %v", err)
	}
	if count != report.Chunks {
		t.Errorf("store has %d chunks, report says %d", count, report.Chunks)
	}
	if handle.Size() != report.Chunks {
		t.Errorf("index has %d vectors, report says %d", handle.Size(), report.Chunks)
	}

	doc, err := store.GetDocumentByFilename(ctx, "penal_code.txt")
	if err != nil {
		t.Fatalf("GetDocumentByFilename failed: %v", err)
	}
	if doc.Title != "penal code" {
		t.Errorf("expected title derived from filename, got %q", doc.Title)
	}

	// ingestion persists the index file
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index file not persisted: %v", err)
	}
}

func TestIngestFile_Idempotent(t *testing.T) {
	p, store, handle, _ := newTestPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	ref := writeTextFile(t, dir, "statute.txt", statuteText)

	first := p.IngestFile(ctx, ref)
	if first.Error != "" {
		t.Fatalf("first ingest failed: %s", first.Error)
	}
	second := p.IngestFile(ctx, ref)
	if second.Error != "" {
		t.Fatalf("second ingest failed: %s", second.Error)
	}

	if first.DocumentId != second.DocumentId {
		t.Errorf("document id changed across re-ingest: %s vs %s", first.DocumentId, second.DocumentId)
	}
	if first.Chunks != second.Chunks {
		t.Errorf("chunk count changed across re-ingest: %d vs %d", first.Chunks, second.Chunks)
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks failed: %v", err)
	}
	if count != first.Chunks {
		t.Errorf("re-ingest duplicated chunks: store has %d, expected %d", count, first.Chunks)
	}
	if handle.Size() != first.Chunks {
		t.Errorf("re-ingest duplicated vectors: index has %d, expected %d", handle.Size(), first.Chunks)
	}

	docs, err := store.Documents(ctx)
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document, got %d", len(docs))
	}
}

func TestIngestFile_UnsupportedType(t *testing.T) {
	p, _, handle, _ := newTestPipeline(t)

	ref := writeTextFile(t, t.TempDir(), "image.png", "not really an image")
	report := p.IngestFile(context.Background(), ref)

	if !report.Skipped {
		t.Error("unsupported type should be skipped")
	}
	if report.Error == "" {
		t.Error("skipped report should say why")
	}
	if handle.Size() != 0 {
		t.Errorf("nothing should be indexed, got %d", handle.Size())
	}
}

func TestIngestFile_EmptyDocumentSkipped(t *testing.T) {
	p, _, handle, _ := newTestPipeline(t)

	ref := writeTextFile(t, t.TempDir(), "blank.txt", "   \n\t  \n")
	report := p.IngestFile(context.Background(), ref)

	if !report.Skipped {
		t.Error("empty document should be skipped")
	}
	if handle.Size() != 0 {
		t.Errorf("nothing should be indexed, got %d", handle.Size())
	}
}

func TestIngestBatch_FailureIsolation(t *testing.T) {
	p, store, _, _ := newTestPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	good := writeTextFile(t, dir, "good.txt", statuteText)
	missing := FileRef{Filename: "missing.txt", Path: filepath.Join(dir, "missing.txt")}

	reports := p.IngestBatch(ctx, []FileRef{missing, good})
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Error == "" {
		t.Error("missing file should report an error")
	}
	if reports[1].Error != "" {
		t.Errorf("good file failed: %s", reports[1].Error)
	}
	if reports[1].Chunks == 0 {
		t.Error("good file should have been ingested")
	}

	if _, err := store.GetDocumentByFilename(ctx, "good.txt"); err != nil {
		t.Errorf("good document not stored: %v", err)
	}
}

// failingPutStore commits normally until the configured number of PutBatch
// calls, then fails every one after that.
type failingPutStore struct {
	chunkStore.Store
	succeed int
	calls   int
}

func (s *failingPutStore) PutBatch(ctx context.Context, doc commonModels.Document, chunks []commonModels.DocChunk) error {
	s.calls++
	if s.calls > s.succeed {
		return errors.New("disk full")
	}
	return s.Store.PutBatch(ctx, doc, chunks)
}

func TestIngestFile_FailedReingestKeepsPreviousGeneration(t *testing.T) {
	dir := t.TempDir()

	inner, err := sqliteStore.NewStore(filepath.Join(dir, "chunks.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { inner.Close() })
	flaky := &failingPutStore{Store: inner, succeed: 1}

	handle, _ := vectorIndex.Open(filepath.Join(dir, "index.vdx"))
	splitter, err := chunker.New(100, 20)
	if err != nil {
		t.Fatalf("chunker.New failed: %v", err)
	}
	embedder := &hashEmbedder{dim: 32}
	p := NewPipeline(flaky, handle, embedder, splitter)
	ctx := context.Background()

	ref := writeTextFile(t, dir, "statute.txt", statuteText)
	first := p.IngestFile(ctx, ref)
	if first.Error != "" {
		t.Fatalf("first ingest failed: %s", first.Error)
	}

	second := p.IngestFile(ctx, ref)
	if second.Error == "" {
		t.Fatal("re-ingest with a failing store should report an error")
	}

	// the first generation must still be searchable: every hit resolves
	hits, err := handle.Search(embedder.embed(statuteText), first.Chunks)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("document vanished from the index after the failed re-ingest")
	}
	for _, hit := range hits {
		if _, err := inner.Get(ctx, hit.VectorId); err != nil {
			t.Errorf("index entry %s does not resolve to a stored chunk: %v", hit.VectorId, err)
		}
	}
	if handle.Size() != first.Chunks {
		t.Errorf("index has %d vectors, expected the first generation's %d", handle.Size(), first.Chunks)
	}
}

func TestRebuildFromStore(t *testing.T) {
	p, store, _, _ := newTestPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	report := p.IngestFile(ctx, writeTextFile(t, dir, "statute.txt", statuteText))
	if report.Error != "" {
		t.Fatalf("ingest failed: %s", report.Error)
	}

	// simulate a lost index file: a new handle over a path with no file
	lostPath := filepath.Join(dir, "rebuilt.vdx")
	lostHandle, _ := vectorIndex.Open(lostPath)
	if lostHandle.Available() {
		t.Fatal("handle should start unavailable")
	}

	splitter, err := chunker.New(100, 20)
	if err != nil {
		t.Fatalf("chunker.New failed: %v", err)
	}
	rebuilt := NewPipeline(store, lostHandle, &hashEmbedder{dim: 32}, splitter)

	n, err := rebuilt.RebuildFromStore(ctx)
	if err != nil {
		t.Fatalf("RebuildFromStore failed: %v", err)
	}
	if n != report.Chunks {
		t.Errorf("rebuilt %d vectors, expected %d", n, report.Chunks)
	}
	if !lostHandle.Available() {
		t.Error("handle should be available after rebuild")
	}
	if _, err := os.Stat(lostPath); err != nil {
		t.Errorf("rebuilt index not persisted: %v", err)
	}
}

func TestRebuildFromStore_EmptyCorpus(t *testing.T) {
	p, _, handle, _ := newTestPipeline(t)

	n, err := p.RebuildFromStore(context.Background())
	if err != nil {
		t.Fatalf("RebuildFromStore failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 vectors, got %d", n)
	}
	if !handle.Available() {
		t.Error("rebuild should leave an empty but available index")
	}
}
