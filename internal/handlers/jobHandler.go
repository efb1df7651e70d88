package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/legalbot/legalbot/internal/api"
	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/domain/jobModel"
	"github.com/legalbot/legalbot/internal/job"
	"github.com/legalbot/legalbot/internal/metrics"
	"github.com/legalbot/legalbot/internal/rag"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService}

		logJH = logger_i.NewLogger("job_handler")
		logRH = logger_i.NewLogger("request_handler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	log := logJH.With("traceId", newJob.traceId, "jobId", newJob.id)
	log.Info("To create new job")
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func RebuildIndex(ctx context.Context) (int, error) {
	return handlerInstance.ragService.RebuildIndex(ctx)
}

func GetCorpusStats(ctx context.Context) (rag.CorpusStats, error) {
	return handlerInstance.ragService.CorpusStats(ctx)
}

func ValidateChatRequest(chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	return chatReq.Message != ""
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {
	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestURL = newJob.documentSource
	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.JobPayload.Question = newJob.message
		_job.CurrentStep = jobModel.UserQueryInit
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//a new worker is signalled every N requests, and always for ingestion
	//jobs since those involve long batch work; idle workers retire on
	//their own so the pool shrinks back afterwards
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Signalling dispatcher", "requestCount", accurateCount)
		h.service.DispatcherChannel <- true
	}
}
