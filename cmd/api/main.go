package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/data/store"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	jobmodel "github.com/legalbot/legalbot/internal/domain/jobModel"
	"github.com/legalbot/legalbot/internal/handlers"
	"github.com/legalbot/legalbot/internal/job"
	"github.com/legalbot/legalbot/internal/rag"
	"github.com/legalbot/legalbot/internal/rag/chunker"
	"github.com/legalbot/legalbot/internal/rag/chunkStore/sqliteStore"
	"github.com/legalbot/legalbot/internal/rag/embedding"
	"github.com/legalbot/legalbot/internal/rag/embedding/fastEmbedding"
	"github.com/legalbot/legalbot/internal/rag/embedding/googleEmbedding"
	"github.com/legalbot/legalbot/internal/rag/ingest"
	"github.com/legalbot/legalbot/internal/rag/llm"
	"github.com/legalbot/legalbot/internal/rag/llm/gemini"
	"github.com/legalbot/legalbot/internal/rag/retriever"
	"github.com/legalbot/legalbot/internal/rag/vectorIndex"
	"github.com/legalbot/legalbot/internal/server"
	"github.com/legalbot/legalbot/internal/worker"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStoreOrFallback(serviceContext, logger),
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	//durable corpus state: chunk database and vector index file
	chunkDB, err := sqliteStore.NewStore(config.ChunkDBPath)
	if err != nil {
		logger.Error("Could not open chunk store. Shutting down.", "error", err)
		return
	}
	defer chunkDB.Close()

	indexHandle, err := vectorIndex.Open(config.IndexFilePath)
	if err != nil {
		logger.Warn("Vector index not loaded, starting without one", "path", config.IndexFilePath, "error", err)
	} else {
		logger.Info("Vector index loaded", "path", config.IndexFilePath, "entries", indexHandle.Size())
	}

	embeddingService := selectEmbedder(serviceContext, logger)
	if embeddingService == nil {
		logger.Error("Embedding service failed to initialize. Shutting down.")
		return
	}

	splitter, err := chunker.New(config.ConfiguredChunkSize, config.ConfiguredOverlap)
	if err != nil {
		logger.Error("Invalid chunking configuration. Shutting down.", "error", err)
		return
	}

	pipeline := ingest.NewPipeline(chunkDB, indexHandle, embeddingService, splitter)

	//an index built with a different embedding model is useless, rebuild
	if indexHandle.Available() && indexHandle.Dimension() != embeddingService.Dimension() {
		logger.Warn("Index dimension does not match embedding model, rebuilding",
			"indexDim", indexHandle.Dimension(), "modelDim", embeddingService.Dimension())
		if _, err := pipeline.RebuildFromStore(serviceContext); err != nil {
			logger.Error("Index rebuild failed", "error", err)
			if !errors.Is(err, commonModels.ErrEmbeddingUnavailable) {
				return
			}
		}
	}

	var llmProvider llm.Provider
	if config.GoogleAPIKey != "" {
		llmProvider = gemini.GetGeminiClient(serviceContext, config.GeminiModelName, config.GoogleAPIKey)
	}
	if llmProvider == nil {
		logger.Warn("No LLM provider configured, answers will be extractive only")
	}

	ragService := rag.NewService(
		pipeline,
		retriever.New(indexHandle, chunkDB, embeddingService),
		llmProvider,
		embeddingService,
		chunkDB,
		indexHandle,
	)

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func jobStoreOrFallback(ctx context.Context, logger *logger_i.Logger) jobmodel.JobStore {
	if redisJobStore := store.GetRedisJobStore(ctx); redisJobStore != nil {
		return redisJobStore
	}
	logger.Error("Redis is offline, using in-memory job store")
	return store.InitInMemoryJobStore()
}

func selectEmbedder(ctx context.Context, logger *logger_i.Logger) embedding.Embedder {
	if config.EmbeddingProvider == config.EmbeddingProviderGoogle {
		if config.GoogleAPIKey == "" {
			logger.Error("Google embedding provider selected but no API key set")
			return nil
		}
		logger.Info("Using Google embedding provider", "model", config.GoogleEmbeddingModel)
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, config.GoogleAPIKey)
	}

	logger.Info("Using local embedding provider", "model", config.FastEmbedModelName)
	return fastEmbedding.GetFastEmbedClient(ctx, config.FastEmbedModelName)
}
