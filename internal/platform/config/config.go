// Package config loads workspace-rag's configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full set of tunables the ingestion pipeline and its infra
// adapters read at startup.
type Config struct {
	Workspace WorkspaceConfig
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	Pipeline  PipelineConfig
	HTTP      HTTPConfig
	Log       LogConfig
}

// WorkspaceConfig names the directory this instance indexes.
type WorkspaceConfig struct {
	Root string
}

// DatabaseConfig is the postgres+pgvector connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig configures both the embeddings and chat-completion clients.
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	ChatModel          string
}

// PipelineConfig tunes queue capacity, worker pools, batching and rate
// limits across every stage.
type PipelineConfig struct {
	QueueCapacity          int
	ThrottleDelay          time.Duration
	ShutdownTimeout        time.Duration
	MonitorInterval        time.Duration
	IncrementalFilterBatch int
	IncrementalFilterWindow time.Duration
	EmbeddingBatchSize     int
	ChunkEnrichWorkers     int
	EmbedWorkers           int
	ParseWorkers           int
	PersistWorkers         int
	FileSummaryWorkers     int
	ChunkEnrichRatePerSec  float64
	EmbedRatePerSec        float64
}

// HTTPConfig configures the control-plane HTTP server (lock set/get).
type HTTPConfig struct {
	Addr string
}

// LogConfig configures structured logging output and rotation.
type LogConfig struct {
	Level      string
	Format     string
	FilePath   string // empty = stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from envFilePath (if it exists) and the process
// environment, applying defaults for anything unset.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load env file: %w", err)
		}
	}

	cfg := &Config{
		Workspace: WorkspaceConfig{
			Root: getEnv("WORKSPACE_ROOT", "."),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "workspace_rag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "workspace_rag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		},
		Pipeline: PipelineConfig{
			QueueCapacity:           getEnvAsInt("PIPELINE_QUEUE_CAPACITY", 256),
			ThrottleDelay:           getEnvAsDuration("PIPELINE_THROTTLE_DELAY", time.Millisecond),
			ShutdownTimeout:         getEnvAsDuration("PIPELINE_SHUTDOWN_TIMEOUT", 30*time.Second),
			MonitorInterval:         getEnvAsDuration("PIPELINE_MONITOR_INTERVAL", 10*time.Second),
			IncrementalFilterBatch:  getEnvAsInt("PIPELINE_FILTER_BATCH_SIZE", 100),
			IncrementalFilterWindow: getEnvAsDuration("PIPELINE_FILTER_WINDOW", 3*time.Second),
			EmbeddingBatchSize:      getEnvAsInt("PIPELINE_EMBED_BATCH_SIZE", 10),
			ChunkEnrichWorkers:      getEnvAsInt("PIPELINE_CHUNK_ENRICH_WORKERS", 4),
			EmbedWorkers:            getEnvAsInt("PIPELINE_EMBED_WORKERS", 2),
			ParseWorkers:            getEnvAsInt("PIPELINE_PARSE_WORKERS", 4),
			PersistWorkers:          getEnvAsInt("PIPELINE_PERSIST_WORKERS", 2),
			FileSummaryWorkers:      getEnvAsInt("PIPELINE_FILE_SUMMARY_WORKERS", 2),
			ChunkEnrichRatePerSec:   getEnvAsFloat("PIPELINE_CHUNK_ENRICH_RATE", 5),
			EmbedRatePerSec:         getEnvAsFloat("PIPELINE_EMBED_RATE", 5),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			FilePath:   getEnv("LOG_FILE_PATH", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
