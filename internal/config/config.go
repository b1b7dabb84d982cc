package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Limits   LimitConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini     string
	HuggingFace      string
	DocumentTopic    string // Ingestion topic
	DocumentDeletion string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "huggingface"
	LLMModel          string // e.g. "llama3", "qwen2.5"
}

// LimitConfig carries the process-wide admission defaults. Per-workspace
// overrides live in the workspace_quotas table and win when present.
type LimitConfig struct {
	RequestsPerMinute int
	RateWindowSeconds int
	DailyTokenLimit   int64
	MonthlyTokenLimit int64
	SearchCacheTTLSec int
	SessionTTLHours   int
	DefaultTopK       int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:     getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:      getEnv("HUGGINGFACE_API_KEY", ""),
			DocumentTopic:    getEnv("EMBED_DOCUMENT_TOPIC_NAME", "EMBED_DOCUMENT"),
			DocumentDeletion: getEnv("DELETE_DOCUMENT_TOPIC_NAME", "DELETE_DOCUMENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Limits: LimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
			RateWindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DailyTokenLimit:   int64(getEnvAsInt("DAILY_TOKEN_LIMIT", 100000)),
			MonthlyTokenLimit: int64(getEnvAsInt("MONTHLY_TOKEN_LIMIT", 2000000)),
			SearchCacheTTLSec: getEnvAsInt("SEARCH_CACHE_TTL_SECONDS", 600),
			SessionTTLHours:   getEnvAsInt("SESSION_TTL_HOURS", 24),
			DefaultTopK:       getEnvAsInt("DEFAULT_TOP_K", 5),
		},
	}
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
