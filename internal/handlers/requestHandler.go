package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/legalbot/legalbot/internal/adapter"
	"github.com/legalbot/legalbot/internal/adapter/utils"
	"github.com/legalbot/legalbot/internal/api"
	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id               string
	message          string
	traceId          string
	isDocumentIngest bool
	documentName     string
	documentSource   string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler accepts a question, queues a query job and returns the job id
// to poll for the answer.
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remoteAddr", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Chat handler reader", "error", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(requestData) {
		logRH.Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	processNewJobData(request, w, requestData, "", "")
}

// GetStatusHandler returns the current state of a job by id.
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler receives a document via multipart/form-data, stages it in
// a scratch directory and queues an ingestion job.
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remoteAddr", r.RemoteAddr)
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	const maxUploadSize = 32 << 20 //32mb
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	// the logical filename identifies the document across uploads, so
	// re-uploading the same document replaces it instead of duplicating it
	logicalName := r.FormValue("document_name")
	if logicalName == "" {
		logicalName = fileMetadata.Filename
	} else if filepath.Ext(logicalName) == "" {
		logicalName += filepath.Ext(fileMetadata.Filename)
	}

	scratchName := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	scratchPath := filepath.Join(targetDir, scratchName)
	destinationFileWriter, err := os.Create(scratchPath)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, logicalName, "Storage error")
		return
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, logicalName, "Write error")
		return
	}

	processNewJobData(r, w, api.ChatRequest{}, logicalName, scratchPath)
}

// PostRebuildHandler rebuilds the vector index from the chunk store. Runs
// synchronously; rebuilds are rare, operator-initiated events.
func PostRebuildHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	n, err := RebuildIndex(r.Context())
	if err != nil {
		logRH.Error("Index rebuild failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Index rebuild failed")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.RebuildResponse{VectorsIndexed: n})
}

// GetStatsHandler reports corpus and index statistics.
func GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	stats, err := GetCorpusStats(r.Context())
	if err != nil {
		logRH.Error("Stats lookup failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Stats lookup failed")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToCorpusStatsResponse(stats))
}
