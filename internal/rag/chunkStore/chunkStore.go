package chunkStore

import (
	"context"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
)

// Store persists documents and their chunks. It is the system of record:
// the vector index can always be rebuilt from it. Implementations return
// commonModels.ErrNotFound for lookups that match nothing.
type Store interface {
	// PutBatch replaces a document's chunks atomically: the document row is
	// upserted, prior chunks are deleted and the new set inserted in one
	// transaction. Re-running an ingest therefore never leaves a partial mix
	// of old and new chunks.
	PutBatch(ctx context.Context, doc commonModels.Document, chunks []commonModels.DocChunk) error

	// Get resolves a single chunk by its id.
	Get(ctx context.Context, chunkId string) (commonModels.DocChunk, error)

	// GetByDocument returns a document's chunks ordered by sequence.
	GetByDocument(ctx context.Context, documentId string) ([]commonModels.DocChunk, error)

	// GetDocumentByFilename finds the document previously ingested from the
	// given filename, the identity key for re-ingestion.
	GetDocumentByFilename(ctx context.Context, filename string) (commonModels.Document, error)

	// DeleteByDocument removes a document and all its chunks.
	DeleteByDocument(ctx context.Context, documentId string) error

	// Documents lists all ingested documents ordered by ingestion time.
	Documents(ctx context.Context) ([]commonModels.Document, error)

	// AllChunks streams every chunk in (document, seq) order, used to
	// rebuild the vector index from scratch.
	AllChunks(ctx context.Context) ([]commonModels.DocChunk, error)

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	Close() error
}
