package adapter

import (
	"fmt"
	"time"

	"github.com/legalbot/legalbot/internal/api"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/domain/jobModel"
	"github.com/legalbot/legalbot/internal/rag"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
		IngestResult:        toIngestResult(job),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  toSourceRefs(ragData.Sources),
	}
}

func toSourceRefs(items []commonModels.ContextItem) []api.SourceRef {
	refs := make([]api.SourceRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, api.SourceRef{
			Title:   item.DocumentTitle,
			Page:    item.Page,
			ChunkId: item.ChunkId,
			Score:   item.Score,
			Excerpt: item.Text,
		})
	}
	return refs
}

func toIngestResult(job jobModel.Job) *api.IngestResult {
	if job.JobType != jobModel.JobTypeIngest {
		return nil
	}
	return &api.IngestResult{
		DocumentName:  job.JobPayload.IngestFileName,
		ChunksIndexed: job.JobPayload.ChunksIndexed,
	}
}

func ToCorpusStatsResponse(stats rag.CorpusStats) api.CorpusStatsResponse {
	details := make([]api.DocumentInfo, 0, len(stats.Documents))
	for _, doc := range stats.Documents {
		details = append(details, api.DocumentInfo{
			Filename:   doc.Filename,
			Title:      doc.Title,
			Pages:      doc.PageCount,
			SizeBytes:  doc.FileSize,
			IngestedAt: doc.IngestedAt,
		})
	}

	return api.CorpusStatsResponse{
		Documents:          len(stats.Documents),
		DocumentDetails:    details,
		Chunks:             stats.Chunks,
		IndexEntries:       stats.IndexEntries,
		IndexAvailable:     stats.IndexAvailable,
		EmbeddingDimension: stats.EmbeddingDim,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
