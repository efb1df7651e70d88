package googleEmbedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/customHttpClient"
	"github.com/legalbot/legalbot/internal/domain/commonModels"
	"github.com/legalbot/legalbot/internal/rag/embedding"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension int32 = config.GoogleEmbeddingDimension

type client struct {
	genAi *genai.Client
	model string
}

func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, HTTPClient: customHttpClient.GetPooledClient()})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: modelName,
	}
	logger.Info("Google Embedding client created", "model", modelName)
	go closeClient(ctx, embeddingClient)
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
	embeddingClient.model = ""
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.doCall(ctx, genai.Text(query))
	if err != nil {
		log.Error("Error getting embedding from Google", "error", err)
		return nil, fmt.Errorf("%w: %v", commonModels.ErrEmbeddingUnavailable, err)
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var results [][]float32
	for i := 0; i < len(chunks); i += config.EmbeddingBatchSize {
		end := i + config.EmbeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		res, err := c.doCall(ctx, getContent(chunks[i:end]))
		if err != nil {
			if doRetry(err, log) {
				time.Sleep(5 * time.Second)
				log.Debug("Retrying batch after rate limit", "offset", i)
				res, err = c.doCall(ctx, getContent(chunks[i:end]))
			}
			if err != nil {
				log.Error("Error getting batch embeddings from Google", "error", err)
				return nil, fmt.Errorf("%w: %v", commonModels.ErrEmbeddingUnavailable, err)
			}
		}

		for _, r := range res.Embeddings {
			results = append(results, r.Values)
		}
	}

	if len(results) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(results), len(chunks))
	}
	return results, nil
}

func (c *client) Dimension() int {
	return int(dimension)
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content,
		&genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_DOCUMENT"})
}
