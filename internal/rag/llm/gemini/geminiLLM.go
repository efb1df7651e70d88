package gemini

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/legalbot/legalbot/internal/config"
	"github.com/legalbot/legalbot/internal/customHttpClient"
	"github.com/legalbot/legalbot/internal/rag/llm"
	"github.com/legalbot/legalbot/pkg/logger_i"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, HTTPClient: customHttpClient.GetPooledClient()})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return
	}

	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
	go closeClient(ctx, geminiClient)
}

func (c *llmClient) Generate(ctx context.Context, question string, contextBlock string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: config.ModelContext},
		},
	}

	userPrompt := fmt.Sprintf("Context:\n%s\n\nUser Question: %s", contextBlock, question)
	if contextBlock == "" {
		userPrompt = fmt.Sprintf("No relevant document excerpts were found.\n\nUser Question: %s", question)
	}

	temperature := float32(config.ModelTemperature)
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       &temperature,
	}

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(userPrompt),
		contentConfig,
	)
	if err != nil {
		log.Error("Error generating answer", "error", err)
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return result.Text(), nil
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
	llm.client = nil
	llm.modelName = ""
}
