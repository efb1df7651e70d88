package rag

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/domain/jobModel"
	"github.com/legalbot/legalbot/internal/metrics"
	"github.com/legalbot/legalbot/internal/rag/retriever"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "currentStep", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, job.JobPayload.Question)
}

func (s *service) executeCacheCheckStep(log *logger_i.Logger, job *jobModel.Job, queryVector []float32) (string, []commonModels.ContextItem, bool) {
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	answer, sources, found := s.cache.Lookup(queryVector)
	if found {
		log.Info("Semantic cache hit")
	}
	return answer, sources, found
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, queryVector []float32) ([]commonModels.ContextItem, error) {
	*job = logOutput(*job, jobModel.VectorIndexCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	items, err := s.retriever.RetrieveVector(ctx, queryVector, 0)
	job.JobPayload.Sources = items
	return items, err
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, items []commonModels.ContextItem) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	if s.llmProvider == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}
	return s.llmProvider.Generate(ctx, job.JobPayload.Question, retriever.AssembleContext(items))
}

// noContextAnswer is the degraded reply when retrieval itself failed.
func noContextAnswer(question string) string {
	return fmt.Sprintf("I could not search the document corpus for %q right now. "+
		"Please try again once documents have been ingested. "+
		"This response is for informational purposes only.", question)
}

// extractiveAnswer builds a reply straight from the retrieved excerpts,
// used when no LLM is configured or generation failed.
func extractiveAnswer(items []commonModels.ContextItem) string {
	if len(items) == 0 {
		return "The ingested documents do not contain relevant excerpts for this question. " +
			"This response is for informational purposes only."
	}

	var b strings.Builder
	b.WriteString("Based on the most relevant excerpts from the ingested documents:\n\n")
	for i, item := range items {
		b.WriteString(fmt.Sprintf("[Source %d: %s, Page %d]\n%s\n\n", i+1, item.DocumentTitle, item.Page, item.Text))
	}
	b.WriteString("This response is for informational purposes only.")
	return b.String()
}
