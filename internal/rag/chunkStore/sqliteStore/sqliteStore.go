package sqliteStore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/rag/chunkStore"
	"github.com/legalbot/legalbot/internal/rag/chunkStore/sqliteStore/migrations"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

// Store is the SQLite-backed chunk store.
type Store struct {
	db     *sql.DB
	path   string
	logger *logger_i.Logger
}

var _ chunkStore.Store = (*Store)(nil)

// NewStore opens (or creates) the chunk database at dbPath and runs any
// pending migrations.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:     db,
		path:   dbPath,
		logger: logger_i.NewLogger("chunk_store"),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("Chunk store ready", "path", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// PutBatch upserts the document row, drops its previous chunks and inserts
// the new set inside one transaction.
func (s *Store) PutBatch(ctx context.Context, doc commonModels.Document, chunks []commonModels.DocChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, page_count, file_size, content_type, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			page_count = excluded.page_count,
			file_size = excluded.file_size,
			content_type = excluded.content_type,
			ingested_at = excluded.ingested_at
	`, doc.Id, doc.Filename, doc.Title, doc.PageCount, doc.FileSize, string(doc.ContentType), doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.Id); err != nil {
		return fmt.Errorf("clearing previous chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, seq, page, text, vector_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ChunkId, doc.Id, c.Seq, c.PageNum, c.Text, c.VectorId); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ChunkId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunk batch: %w", err)
	}
	return nil
}

const chunkColumns = `
	c.id, c.seq, c.page, c.text, c.vector_id,
	d.id, d.filename, d.title, d.page_count, d.file_size, d.content_type, d.ingested_at
`

func scanChunk(row interface{ Scan(...any) error }) (commonModels.DocChunk, error) {
	var c commonModels.DocChunk
	var contentType string
	err := row.Scan(
		&c.ChunkId, &c.Seq, &c.PageNum, &c.Text, &c.VectorId,
		&c.Doc.Id, &c.Doc.Filename, &c.Doc.Title, &c.Doc.PageCount,
		&c.Doc.FileSize, &contentType, &c.Doc.IngestedAt,
	)
	if err != nil {
		return commonModels.DocChunk{}, err
	}
	c.Doc.ContentType = commonModels.DocType(contentType)
	return c, nil
}

// Get resolves a single chunk by id.
func (s *Store) Get(ctx context.Context, chunkId string) (commonModels.DocChunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.id = ?
	`, chunkId)

	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return commonModels.DocChunk{}, fmt.Errorf("%w: chunk %s", commonModels.ErrNotFound, chunkId)
		}
		return commonModels.DocChunk{}, fmt.Errorf("scanning chunk: %w", err)
	}
	return c, nil
}

// GetByDocument returns a document's chunks in sequence order.
func (s *Store) GetByDocument(ctx context.Context, documentId string) ([]commonModels.DocChunk, error) {
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.document_id = ?
		ORDER BY c.seq
	`, documentId)
}

// AllChunks returns every chunk in (document, seq) order.
func (s *Store) AllChunks(ctx context.Context) ([]commonModels.DocChunk, error) {
	return s.queryChunks(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c JOIN documents d ON d.id = c.document_id
		ORDER BY d.ingested_at, d.id, c.seq
	`)
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]commonModels.DocChunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []commonModels.DocChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetDocumentByFilename finds a document by its source filename.
func (s *Store) GetDocumentByFilename(ctx context.Context, filename string) (commonModels.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, title, page_count, file_size, content_type, ingested_at
		FROM documents WHERE filename = ?
	`, filename)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return commonModels.Document{}, fmt.Errorf("%w: document %s", commonModels.ErrNotFound, filename)
		}
		return commonModels.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// DeleteByDocument removes a document; its chunks cascade.
func (s *Store) DeleteByDocument(ctx context.Context, documentId string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentId); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Documents lists all ingested documents, oldest first.
func (s *Store) Documents(ctx context.Context) ([]commonModels.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, title, page_count, file_size, content_type, ingested_at
		FROM documents ORDER BY ingested_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []commonModels.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row interface{ Scan(...any) error }) (commonModels.Document, error) {
	var doc commonModels.Document
	var contentType string
	err := row.Scan(&doc.Id, &doc.Filename, &doc.Title, &doc.PageCount,
		&doc.FileSize, &contentType, &doc.IngestedAt)
	if err != nil {
		return commonModels.Document{}, err
	}
	doc.ContentType = commonModels.DocType(contentType)
	return doc, nil
}

// CountChunks returns the total number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}
