package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// SourceRef is one citation backing an answer.
type SourceRef struct {
	Title   string  `json:"title"`
	Page    int     `json:"page"`
	ChunkId string  `json:"chunk_id"`
	Score   float32 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type RAGResponse struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []SourceRef `json:"sources"`
}

type IngestResult struct {
	DocumentName  string `json:"document_name"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type Result struct {
	Status              string        `json:"status"`
	RAGExternalResponse *RAGResponse  `json:"rag_response,omitempty"`
	IngestResult        *IngestResult `json:"ingest_result,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type RebuildResponse struct {
	VectorsIndexed int `json:"vectors_indexed"`
}

// DocumentInfo is the per-document slice of the corpus stats.
type DocumentInfo struct {
	Filename   string    `json:"filename"`
	Title      string    `json:"title"`
	Pages      int       `json:"pages"`
	SizeBytes  int64     `json:"size_bytes"`
	IngestedAt time.Time `json:"ingested_at"`
}

type CorpusStatsResponse struct {
	Documents          int            `json:"documents"`
	DocumentDetails    []DocumentInfo `json:"document_details"`
	Chunks             int            `json:"chunks"`
	IndexEntries       int            `json:"index_entries"`
	IndexAvailable     bool           `json:"index_available"`
	EmbeddingDimension int            `json:"embedding_dimension"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type IngestDocumentRequest struct {
	DocumentName string `json:"document_name" validate:"required"`
}
