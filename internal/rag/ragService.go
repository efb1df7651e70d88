package rag

import (
	"context"
	"os"
	"time"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/domain/jobModel"
	"github.com/legalbot/legalbot/internal/metrics"
	"github.com/legalbot/legalbot/internal/rag/chunkStore"
	"github.com/legalbot/legalbot/internal/rag/embedding"
	"github.com/legalbot/legalbot/internal/rag/ingest"
	"github.com/legalbot/legalbot/internal/rag/llm"
	"github.com/legalbot/legalbot/internal/rag/retriever"
	"github.com/legalbot/legalbot/internal/rag/vectorIndex"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

// CorpusStats summarizes what the assistant currently knows.
type CorpusStats struct {
	Documents      []commonModels.Document `json:"documents"`
	Chunks         int                     `json:"chunks"`
	IndexEntries   int                     `json:"index_entries"`
	IndexAvailable bool                    `json:"index_available"`
	EmbeddingDim   int                     `json:"embedding_dimension"`
}

// Service is the worker-facing contract. The worker never touches the index,
// the store or the LLM directly.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	RebuildIndex(ctx context.Context) (int, error)
	CorpusStats(ctx context.Context) (CorpusStats, error)
}

type service struct {
	pipeline    *ingest.Pipeline
	retriever   *retriever.Retriever
	llmProvider llm.Provider
	embedder    embedding.Embedder
	store       chunkStore.Store
	index       *vectorIndex.Handle
	cache       *answerCache
	logger      *logger_i.Logger
}

// NewService wires the query and ingestion flows. llmProvider may be nil;
// queries then fall back to extractive answers built from the sources.
func NewService(pipeline *ingest.Pipeline, retr *retriever.Retriever, llmProvider llm.Provider,
	em embedding.Embedder, store chunkStore.Store, index *vectorIndex.Handle) Service {
	return &service{
		pipeline:    pipeline,
		retriever:   retr,
		llmProvider: llmProvider,
		embedder:    em,
		store:       store,
		index:       index,
		cache:       newAnswerCache(),
		logger:      logger_i.NewLogger("rag_service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	// Embedding
	queryVector, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt)
	if err != nil {
		return s.jobError(jobt, err, "EMBEDDING_FAILURE", true)
	}

	// Cache Check
	cachedAnswer, cachedSources, found := s.executeCacheCheckStep(inMethodLogger, &jobt, queryVector)
	if found {
		jobt.JobPayload.Sources = cachedSources
		return returnOutput(jobt, cachedAnswer)
	}

	// Retrieval; an unavailable index degrades to a no-context answer
	items, err := s.executeRetrievalStep(processContext, inMethodLogger, &jobt, queryVector)
	if err != nil {
		inMethodLogger.Warn("Retrieval failed, answering without context", "error", err)
		return returnOutput(jobt, noContextAnswer(jobt.JobPayload.Question))
	}

	// LLM Generation; failure degrades to an extractive answer
	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, items)
	if err != nil {
		inMethodLogger.Warn("LLM generation failed, using extractive answer", "error", err)
		answer = extractiveAnswer(items)
	}

	// Background cache save
	go s.cache.Save(queryVector, answer, items)

	return returnOutput(jobt, answer)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	job.CurrentStep = jobModel.IngestProcessing
	report := s.pipeline.IngestFile(ctx, ingest.FileRef{
		Filename: job.JobPayload.IngestFileName,
		Path:     job.JobPayload.IngestURL,
	})

	// uploaded bytes live in a scratch file, done with it either way
	if job.JobPayload.IngestURL != "" {
		if err := os.Remove(job.JobPayload.IngestURL); err != nil {
			s.logger.Warn("Error removing scratch file", "path", job.JobPayload.IngestURL, "error", err)
		}
	}

	if report.Error != "" && !report.Skipped {
		return s.jobError(job, nil, "INGESTION_FAILURE: "+report.Error, true)
	}

	job.JobPayload.ChunksIndexed = report.Chunks
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	if report.Skipped {
		job.Error = jobModel.JobError{Message: report.Error}
	}
	return job
}

func (s *service) RebuildIndex(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_rebuild", time.Since(start)) }()
	return s.pipeline.RebuildFromStore(ctx)
}

func (s *service) CorpusStats(ctx context.Context) (CorpusStats, error) {
	docs, err := s.store.Documents(ctx)
	if err != nil {
		return CorpusStats{}, err
	}
	chunks, err := s.store.CountChunks(ctx)
	if err != nil {
		return CorpusStats{}, err
	}
	return CorpusStats{
		Documents:      docs,
		Chunks:         chunks,
		IndexEntries:   s.index.Size(),
		IndexAvailable: s.index.Available(),
		EmbeddingDim:   s.embedder.Dimension(),
	}, nil
}
