package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/legalbot/legalbot/internal/config"
	jobmodel "github.com/legalbot/legalbot/internal/domain/jobModel"
	"github.com/legalbot/legalbot/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, 60*time.Second)
	defer cancel()
	log := logger.With("traceId", job.TraceId, "jobId", job.Id)
	log.Debug("Processing job")

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	if job.JobType == jobmodel.JobTypeIngest {
		job.CurrentStep = jobmodel.IngestProcessing
		job = _ragService.IngestDocument(ctx, job)
	} else {
		job = _ragService.ProcessRequest(ctx, job)
	}

	job.EndTime = time.Now()
	finalStatus := jobmodel.JobStatusComplete
	if job.Status == jobmodel.JobStatusError {
		finalStatus = jobmodel.JobStatusError
	}
	saveJobState(ctx, job, finalStatus)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job status", "err", err)
	}
}
