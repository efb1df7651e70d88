package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/legalbot/legalbot/internal/adapter/utils"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/metrics"
	"github.com/legalbot/legalbot/internal/rag/chunker"
	"github.com/legalbot/legalbot/internal/rag/chunkStore"
	"github.com/legalbot/legalbot/internal/rag/embedding"
	"github.com/legalbot/legalbot/internal/rag/vectorIndex"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var logger = logger_i.NewLogger("ingest")

// FileRef names one document to ingest: the logical filename that identifies
// the document across re-ingests, and the path the bytes currently live at.
type FileRef struct {
	Filename string
	Path     string
}

// Pipeline runs document ingestion end to end: extract, chunk, embed, index,
// persist. A mutex serializes ingestion so the index and the chunk store
// never see interleaved writers; queries keep running concurrently.
type Pipeline struct {
	mu       sync.Mutex
	store    chunkStore.Store
	index    *vectorIndex.Handle
	embedder embedding.Embedder
	splitter *chunker.Chunker
}

func NewPipeline(store chunkStore.Store, index *vectorIndex.Handle, embedder embedding.Embedder, splitter *chunker.Chunker) *Pipeline {
	return &Pipeline{
		store:    store,
		index:    index,
		embedder: embedder,
		splitter: splitter,
	}
}

// IngestFile ingests a single document and reports the outcome. Re-ingesting
// a filename replaces the document's chunks and vectors; the corpus never
// holds two generations of the same document.
func (p *Pipeline) IngestFile(ctx context.Context, ref FileRef) commonModels.IngestReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ingestLocked(ctx, ref)
}

// IngestBatch ingests documents one by one. A failing document is reported
// and skipped; the rest of the batch proceeds.
func (p *Pipeline) IngestBatch(ctx context.Context, refs []FileRef) []commonModels.IngestReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	reports := make([]commonModels.IngestReport, 0, len(refs))
	for _, ref := range refs {
		reports = append(reports, p.ingestLocked(ctx, ref))
	}
	return reports
}

func (p *Pipeline) ingestLocked(ctx context.Context, ref FileRef) commonModels.IngestReport {
	log := logger.With("filename", ref.Filename)
	report := commonModels.IngestReport{Filename: ref.Filename}

	docType := getDocType(ref.Filename)
	if docType == commonModels.ERR {
		log.Warn("Unsupported document type", "path", ref.Path)
		report.Skipped = true
		report.Error = fmt.Sprintf("unsupported file type: %s", filepath.Ext(ref.Filename))
		return report
	}

	pages, err := extractText(ref.Path, docType)
	if err != nil {
		log.Error("Error extracting document content", "error", err)
		report.Error = err.Error()
		return report
	}

	pieces, err := p.splitter.Chunk(pages)
	if err != nil {
		if errors.Is(err, commonModels.ErrExtractionEmpty) {
			log.Warn("Document produced no text, skipping")
			report.Skipped = true
			report.Error = err.Error()
			return report
		}
		log.Error("Error chunking document", "error", err)
		report.Error = err.Error()
		return report
	}

	doc, previousVectorIds, err := p.resolveDocument(ctx, ref, docType, pages)
	if err != nil {
		log.Error("Error resolving document identity", "error", err)
		report.Error = err.Error()
		return report
	}
	report.DocumentId = doc.Id

	chunks := make([]commonModels.DocChunk, 0, len(pieces))
	texts := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		id := utils.GetNewUUID()
		chunks = append(chunks, commonModels.DocChunk{
			Doc:      doc,
			ChunkId:  id,
			Text:     piece.Text,
			PageNum:  piece.PageNum,
			Seq:      piece.Seq,
			VectorId: id,
		})
		texts = append(texts, piece.Text)
	}

	vectors, err := p.embedder.BatchEmbedding(ctx, texts)
	if err != nil {
		log.Error("Error embedding chunks", "error", err)
		report.Error = err.Error()
		return report
	}
	if len(vectors) != len(chunks) {
		report.Error = fmt.Sprintf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
		log.Error("Error embedding chunks", "error", report.Error)
		return report
	}

	// the store commits before the index changes hands: a failure from here
	// on leaves the previous generation fully searchable, never an index
	// pointing at chunk rows that no longer exist
	if err := p.store.PutBatch(ctx, doc, chunks); err != nil {
		log.Error("Error persisting chunks", "error", err)
		report.Error = err.Error()
		return report
	}

	if err := p.applyToIndex(previousVectorIds, chunks, vectors); err != nil {
		log.Error("Error updating vector index", "error", err)
		report.Error = err.Error()
		return report
	}

	if err := p.index.Persist(); err != nil {
		log.Error("Error persisting vector index", "error", err)
		report.Error = err.Error()
		return report
	}

	metrics.AddChunksIndexed(len(chunks))
	metrics.SetIndexEntries(p.index.Size())

	report.Chunks = len(chunks)
	log.Info("Document ingested", "documentId", doc.Id, "chunks", len(chunks), "pages", len(pages))
	return report
}

// resolveDocument keeps document identity stable across re-ingests: a known
// filename reuses its id and returns the vector ids to supersede.
func (p *Pipeline) resolveDocument(ctx context.Context, ref FileRef, docType commonModels.DocType, pages []chunker.Page) (commonModels.Document, []string, error) {
	doc := commonModels.Document{
		Id:          utils.GetNewUUID(),
		Filename:    ref.Filename,
		Title:       titleFromFilename(ref.Filename),
		PageCount:   maxPageNumber(pages),
		ContentType: docType,
		IngestedAt:  time.Now().UTC(),
	}
	if info, err := os.Stat(ref.Path); err == nil {
		doc.FileSize = info.Size()
	}

	existing, err := p.store.GetDocumentByFilename(ctx, ref.Filename)
	if err != nil {
		if errors.Is(err, commonModels.ErrNotFound) {
			return doc, nil, nil
		}
		return commonModels.Document{}, nil, err
	}

	doc.Id = existing.Id
	old, err := p.store.GetByDocument(ctx, existing.Id)
	if err != nil {
		return commonModels.Document{}, nil, err
	}
	vectorIds := make([]string, 0, len(old))
	for _, c := range old {
		vectorIds = append(vectorIds, c.VectorId)
	}
	return doc, vectorIds, nil
}

// applyToIndex removes the superseded vectors and inserts the new ones. The
// first ingest after a cold start with no index file creates one. Callers
// must have committed the chunks to the store already.
func (p *Pipeline) applyToIndex(previousVectorIds []string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if !p.index.Available() {
		fresh, err := vectorIndex.New(p.embedder.Dimension())
		if err != nil {
			return err
		}
		p.index.Swap(fresh)
		logger.Info("Created new vector index", "dimension", p.embedder.Dimension())
	}

	if len(previousVectorIds) > 0 {
		removed, err := p.index.RemoveBatch(previousVectorIds)
		if err != nil {
			return err
		}
		logger.Debug("Removed superseded vectors", "count", removed)
	}

	for i, c := range chunks {
		if err := p.index.Add(c.VectorId, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// RebuildFromStore re-embeds every stored chunk into a fresh index and swaps
// it in, recovering from a lost or corrupt index file. Returns the number of
// vectors indexed.
func (p *Pipeline) RebuildFromStore(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chunks, err := p.store.AllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading chunks for rebuild: %w", err)
	}

	fresh, err := vectorIndex.New(p.embedder.Dimension())
	if err != nil {
		return 0, err
	}

	if len(chunks) > 0 {
		texts := make([]string, 0, len(chunks))
		for _, c := range chunks {
			texts = append(texts, c.Text)
		}
		vectors, err := p.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("re-embedding chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return 0, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
		}
		for i, c := range chunks {
			if err := fresh.Add(c.VectorId, vectors[i]); err != nil {
				return 0, fmt.Errorf("indexing chunk %s: %w", c.ChunkId, err)
			}
		}
	}

	p.index.Swap(fresh)
	if err := p.index.Persist(); err != nil {
		return 0, fmt.Errorf("persisting rebuilt index: %w", err)
	}

	metrics.SetIndexEntries(fresh.Size())
	logger.Info("Vector index rebuilt", "vectors", fresh.Size())
	return fresh.Size(), nil
}

func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ReplaceAll(base, "_", " ")
}

func maxPageNumber(pages []chunker.Page) int {
	max := 0
	for _, p := range pages {
		if p.Number > max {
			max = p.Number
		}
	}
	return max
}
