package fastEmbedding

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/rag/embedding"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var localClient *client

// modelDimensions maps the supported local models to their vector sizes.
// The dimension is fixed per model; changing the model invalidates any
// index built with the previous one.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.AllMiniLML6V2: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGESmallENV15: 384,
	fastembed.BGEBaseEN:     768,
	fastembed.BGEBaseENV15:  768,
}

var modelMapping = map[string]fastembed.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
}

type client struct {
	model     *fastembed.FlagEmbedding
	dimension int
}

// GetFastEmbedClient loads the local ONNX embedding model once per process.
// Returns nil when the model cannot be initialized; ingestion treats that as
// EmbeddingUnavailable while retrieval against an existing index degrades
// per query.
func GetFastEmbedClient(ctx context.Context, modelName string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("fastembed")
		newLocalEmbedder(ctx, modelName)
	})

	if localClient == nil {
		return nil
	}
	return &client{model: localClient.model, dimension: localClient.dimension}
}

func newLocalEmbedder(ctx context.Context, modelName string) {
	model, ok := modelMapping[modelName]
	if !ok {
		logger.Error("Unsupported local embedding model", "model", modelName)
		return
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             config.ModelCacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		logger.Error("Error initializing local embedding model", "model", modelName, "error", err)
		return
	}

	localClient = &client{
		model:     flagEmbed,
		dimension: modelDimensions[model],
	}
	logger.Info("Local embedding model loaded", "model", modelName, "dimension", localClient.dimension)
	go closeClient(ctx, localClient)
}

func closeClient(ctx context.Context, c *client) {
	<-ctx.Done()
	logger.Info("Closing local embedding model")
	if err := c.model.Destroy(); err != nil {
		logger.Error("Error releasing embedding model", "error", err)
	}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := c.model.QueryEmbed(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commonModels.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors, err := c.model.PassageEmbed(chunks, config.EmbeddingBatchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commonModels.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (c *client) Dimension() int {
	return c.dimension
}
