package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//retrieval
	TopKDefault = 5
	//the retriever over-fetches to leave room for page-level deduplication
	SearchHeadroomFactor = 3
	//context block sent to the LLM is capped at this many characters
	MaxContextChars       = 3000
	CacheSimilarityCutoff = 0.97
	AnswerCacheCapacity   = 256

	//chunking
	ChunkSize    = 500
	ChunkOverlap = 50

	//embeddings
	//"fastembed" runs the local ONNX model, "google" calls the Gemini embedding API
	EmbeddingProviderFastEmbed = "fastembed"
	EmbeddingProviderGoogle    = "google"
	FastEmbedModelName         = "sentence-transformers/all-MiniLM-L6-v2"
	FastEmbedDimension         = 384
	GoogleEmbeddingModel       = "gemini-embedding-001"
	GoogleEmbeddingDimension   = 1536
	EmbeddingBatchSize         = 100

	//llm
	GeminiModelName  = "gemini-2.5-flash"
	ModelTemperature = 0.7
	ModelContext     = "You are a legal assistant answering questions about Indian law (IPC, CrPC and other statutes). " +
		"Answer from the provided document excerpts, cite sections and page numbers where possible, " +
		"and say so clearly when the excerpts do not contain the answer. " +
		"Always note that the answer is for informational purposes only."

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisJobStore = 0

	RedisJobStoreTTL = 24 * time.Hour

	//per page text extraction timeout, some scanned PDFs hang the parser
	PageExtractTimeout = 10 * time.Second
)

// Paths of the durable artifacts. The index file and the chunk database are
// two views over the same corpus and always travel together.
const (
	defaultDataDir   = "data"
	defaultIndexFile = "data/index/legalbot.vdx"
	defaultChunkDB   = "data/legalbot.db"
)

var (
	NoAuthBypass = getEnvBool("LEGALBOT_NO_AUTH", false)
	AuthToken    = getEnv("LEGALBOT_AUTH_TOKEN", "")

	RedisPassword = getEnv("REDIS_PASSWORD", "")

	GoogleAPIKey = getEnv("GEMINI_API_KEY", "")

	EmbeddingProvider = getEnv("LEGALBOT_EMBEDDING_PROVIDER", EmbeddingProviderFastEmbed)
	ModelCacheDir     = getEnv("LEGALBOT_MODEL_CACHE", "local_cache")

	IndexFilePath = getEnv("LEGALBOT_INDEX_PATH", defaultIndexFile)
	ChunkDBPath   = getEnv("LEGALBOT_CHUNKDB_PATH", defaultChunkDB)
	DataDir       = getEnv("LEGALBOT_DATA_DIR", defaultDataDir)

	ConfiguredChunkSize = getEnvInt("LEGALBOT_CHUNK_SIZE", ChunkSize)
	ConfiguredOverlap   = getEnvInt("LEGALBOT_CHUNK_OVERLAP", ChunkOverlap)
	ConfiguredTopK      = getEnvInt("LEGALBOT_TOP_K", TopKDefault)
)

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
