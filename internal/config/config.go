package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"swimcoach-be/pkg/rag/chunker"
	"swimcoach-be/pkg/vectorindex"

	"github.com/joho/godotenv"
)

const (
	SnapshotBackendFile     = "file"
	SnapshotBackendPostgres = "postgres"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RagConfig
	Timeouts TimeoutConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	UploadDir          string
	DocumentsDir       string // root for server-side ingestion by path
	IngestTopic        string // watermill topic for async ingestion
	TracingEnabled     bool
	OtlpEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	OpenWeather  string
	GoogleGemini string
	Jina         string
	LLM          string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string // embedding model
	JinaModel         string
	LLMProvider       string // "ollama", "openai", "huggingface"
	LLMModel          string
	LLMBaseURL        string
	Temperature       float64
	MaxTokens         int
}

type RagConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	ChunkStrategy    string
	TopK             int
	SessionLimit     int
	SessionTTL       time.Duration
	Metric           string
	SnapshotBackend  string
	SnapshotDir      string
	SnapshotKey      string
	EmbedConcurrency int
	EmbedBatchSize   int
	EmbedRateLimit   float64 // requests per second, 0 disables
	EmbedBurst       int
	WeatherCacheTTL  time.Duration
}

// TimeoutConfig bounds every call that waits on I/O.
type TimeoutConfig struct {
	Embed    time.Duration
	Generate time.Duration
	Persist  time.Duration
	Weather  time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			UploadDir:          getEnv("UPLOAD_DIR", os.TempDir()),
			DocumentsDir:       getEnv("DOCUMENTS_DIR", "documents"),
			IngestTopic:        getEnv("INGEST_TOPIC_NAME", "INGEST_DOCUMENT"),
			TracingEnabled:     getEnvAsBool("TRACING_ENABLED", false),
			OtlpEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			OpenWeather:  getEnv("OPENWEATHER_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			LLM:          getEnv("LLM_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			JinaModel:         getEnv("JINA_EMBEDDING_MODEL", "jina-embeddings-v3"),
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 500),
		},
		Rag: RagConfig{
			ChunkSize:        getEnvAsInt("RAG_CHUNK_SIZE", 400),
			ChunkOverlap:     getEnvAsInt("RAG_CHUNK_OVERLAP", 40),
			ChunkStrategy:    getEnv("RAG_CHUNK_STRATEGY", string(chunker.StrategyFixed)),
			TopK:             getEnvAsInt("RAG_TOP_K", 3),
			SessionLimit:     getEnvAsInt("RAG_SESSION_LIMIT", 10),
			SessionTTL:       getEnvAsDuration("RAG_SESSION_TTL", 30*time.Minute),
			Metric:           getEnv("RAG_METRIC", string(vectorindex.MetricCosine)),
			SnapshotBackend:  getEnv("RAG_SNAPSHOT_BACKEND", SnapshotBackendFile),
			SnapshotDir:      getEnv("RAG_SNAPSHOT_DIR", "swimmerStoryDb"),
			SnapshotKey:      getEnv("RAG_SNAPSHOT_KEY", "swimmer-story"),
			EmbedConcurrency: getEnvAsInt("RAG_EMBED_CONCURRENCY", 4),
			EmbedBatchSize:   getEnvAsInt("RAG_EMBED_BATCH_SIZE", 32),
			EmbedRateLimit:   getEnvAsFloat("RAG_EMBED_RATE_LIMIT", 0),
			EmbedBurst:       getEnvAsInt("RAG_EMBED_BURST", 1),
			WeatherCacheTTL:  getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		},
		Timeouts: TimeoutConfig{
			Embed:    getEnvAsDuration("TIMEOUT_EMBED", 30*time.Second),
			Generate: getEnvAsDuration("TIMEOUT_GENERATE", 60*time.Second),
			Persist:  getEnvAsDuration("TIMEOUT_PERSIST", 10*time.Second),
			Weather:  getEnvAsDuration("TIMEOUT_WEATHER", 10*time.Second),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ChunkPolicy is the chunker configuration of this deployment.
func (c *Config) ChunkPolicy() chunker.Config {
	return chunker.Config{
		ChunkSize: c.Rag.ChunkSize,
		Overlap:   c.Rag.ChunkOverlap,
		Strategy:  chunker.Strategy(c.Rag.ChunkStrategy),
	}
}

// Validate reports every invalid setting at once so boot fails with a full list.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ChunkPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := vectorindex.ParseMetric(c.Rag.Metric); err != nil {
		errs = append(errs, err)
	}
	switch c.Rag.SnapshotBackend {
	case SnapshotBackendFile:
		if c.Rag.SnapshotDir == "" {
			errs = append(errs, errors.New("RAG_SNAPSHOT_DIR is required for the file snapshot backend"))
		}
	case SnapshotBackendPostgres:
		if c.Database.Connection == "" {
			errs = append(errs, errors.New("DB_CONNECTION_STRING is required for the postgres snapshot backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot backend %q", c.Rag.SnapshotBackend))
	}
	if c.Rag.SnapshotKey == "" {
		errs = append(errs, errors.New("RAG_SNAPSHOT_KEY must not be empty"))
	}
	if c.Rag.TopK < 0 {
		errs = append(errs, fmt.Errorf("RAG_TOP_K must not be negative, got %d", c.Rag.TopK))
	}
	if c.Rag.SessionLimit <= 0 {
		errs = append(errs, fmt.Errorf("RAG_SESSION_LIMIT must be positive, got %d", c.Rag.SessionLimit))
	}

	for name, d := range map[string]time.Duration{
		"TIMEOUT_EMBED":    c.Timeouts.Embed,
		"TIMEOUT_GENERATE": c.Timeouts.Generate,
		"TIMEOUT_PERSIST":  c.Timeouts.Persist,
		"TIMEOUT_WEATHER":  c.Timeouts.Weather,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
