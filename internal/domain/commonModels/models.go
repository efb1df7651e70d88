package commonModels

import "time"

type Document struct {
	Id          string    `json:"source_doc_id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	PageCount   int       `json:"page_count"`
	FileSize    int64     `json:"file_size"`
	IngestedAt  time.Time `json:"ingested_at"`
	ContentType DocType   `json:"content_type"`
}

// DocChunk is the unit of retrieval. Chunks are immutable once written;
// re-ingesting a document replaces its chunks instead of mutating them.
type DocChunk struct {
	Doc      Document `json:"doc"`
	ChunkId  string   `json:"chunk_id"`
	Text     string   `json:"text"`
	PageNum  int      `json:"page_num"`
	Seq      int      `json:"seq"`
	VectorId string   `json:"vector_id"`
}

// ContextItem is one retrieval hit, resolved and ready for citation.
// It is ephemeral - produced per query, consumed by the answer flow.
type ContextItem struct {
	ChunkId       string  `json:"chunk_id"`
	DocumentId    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Page          int     `json:"page"`
	Text          string  `json:"text"`
	Score         float32 `json:"score"`
}

// IngestReport is the per-document outcome of a batch ingestion.
// Skipped or failed documents are reported here, never dropped silently.
type IngestReport struct {
	Filename   string `json:"filename"`
	DocumentId string `json:"document_id,omitempty"`
	Chunks     int    `json:"chunks"`
	Skipped    bool   `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"
