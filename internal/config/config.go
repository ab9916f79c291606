package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBackend         string
	LLMModelName       string
	LLMBaseURL         string
	LLMAPIKey          string
	LLMEnabled         bool
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingSize      int
	DBPath             string
	QdrantURL          string
	QdrantCollection   string
	APIPort            string
	RetrievalPath      string
	Retrieval          Retrieval
	LogLevel           string
	LogFormat          string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	// Try to find project root by looking for go.mod
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	backend := getEnv("LLM_BACKEND", "ollama")
	if backend != "ollama" && backend != "openai" {
		return nil, fmt.Errorf("LLM_BACKEND must be \"ollama\" or \"openai\", got %q", backend)
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "")
	if llmBaseURL == "" {
		if backend == "ollama" {
			llmBaseURL = "http://localhost:11434"
		} else {
			llmBaseURL = "http://localhost:8080/v1"
		}
	}

	cfg := &Config{
		LLMBackend:         backend,
		LLMModelName:       getEnv("LLM_MODEL", "llama3.2:latest"),
		LLMBaseURL:         llmBaseURL,
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081/v1"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "multi-qa-mpnet-base-dot-v1"),
		DBPath:             getEnv("DB_PATH", "./data/docqa.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		APIPort:            getEnv("API_PORT", "8000"),
		RetrievalPath:      getEnv("RETRIEVAL_CONFIG", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	enabled, err := parseBool(getEnv("LLM_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("LLM_ENABLED must be a boolean: %w", err)
	}
	cfg.LLMEnabled = enabled

	// Parse EMBEDDING_VECTOR_SIZE.
	// This must match the output vector size of the embeddings model
	// (768 for multi-qa-mpnet-base-dot-v1). If the size changes, the
	// Qdrant collection must be recreated.
	sizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if sizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingSize = size

	// Retrieval tuning: defaults, optionally overlaid by a TOML file.
	retrieval, err := LoadRetrieval(cfg.RetrievalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load retrieval config: %w", err)
	}
	cfg.Retrieval = retrieval

	// Create ./data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(value string) (bool, error) {
	return strconv.ParseBool(value)
}
