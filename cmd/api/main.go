package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"
	"time"

	"docqa/internal/config"
	"docqa/internal/http"
	"docqa/internal/ingest"
	"docqa/internal/llm"
	"docqa/internal/rag"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about documents uploaded into isolated workspaces,
// using hybrid (vector + full-text) retrieval with grounded generation.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: DocQA API
//   description: |
//     Workspace-scoped document question answering. Upload files into a
//     workspace, then ask questions; answers are grounded in the retrieved
//     chunks and the service refuses rather than guess when coverage is too
//     thin.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	workspaceRepo := storage.NewWorkspaceRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	noteRepo := storage.NewNoteRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingSize)

	// Embedding client. Vector sizes are validated on every call, so a
	// backend that is still starting up only degrades ingest and chat
	// until it comes online; the probe below just surfaces that early.
	embedder, err := llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingSize)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	go probeEmbedder(embedder)

	// Create LLM client (external service layer)
	generator, err := llm.NewChatClient(cfg.LLMBackend, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMEnabled)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	// Create RAG engine
	ragEngine := rag.NewEngine(
		ragConfig(cfg.Retrieval),
		embedder,
		generator,
		vectorStore,
		cfg.QdrantCollection,
		chunkRepo,
		workspaceRepo,
	)
	slog.Info("RAG engine initialized", "llm_backend", cfg.LLMBackend, "llm_enabled", cfg.LLMEnabled)

	// Create ingestion pipeline
	pipeline, err := ingest.NewPipeline(workspaceRepo, documentRepo, embedder, vectorStore, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create ingestion pipeline: %v", err)
	}
	defer pipeline.Release()

	// Create router with dependencies
	deps := &http.Deps{
		Engine:        ragEngine,
		Workspaces:    workspaceRepo,
		Documents:     documentRepo,
		Chunks:        chunkRepo,
		Notes:         noteRepo,
		Vectors:       vectorStore,
		Ingest:        pipeline,
		VectorChecker: vectorStore,
		DB:            db,
		Collection:    cfg.QdrantCollection,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// parseLogLevel maps a LOG_LEVEL string onto a slog level, defaulting
// to info for unknown values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// probeEmbedder checks the embedding backend once at startup so an
// unreachable or misconfigured backend shows up in the logs before the
// first upload fails.
func probeEmbedder(embedder *llm.OpenAIEmbedder) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := embedder.EmbedTexts(ctx, []string{"test"}); err != nil {
		slog.Warn("Embedding backend not ready", "error", err)
		return
	}
	slog.Info("Embedding client validated", "model", embedder.Model(), "vector_size", embedder.ExpectedSize())
}

// ragConfig maps the loaded retrieval tuning onto the engine's config.
func ragConfig(r config.Retrieval) rag.Config {
	return rag.Config{
		VectorK:           r.VectorK,
		LexicalK:          r.LexicalK,
		RRFK:              r.RRFK,
		AnchorTokens:      r.AnchorTokens,
		FilterChain:       r.FilterChain,
		DuplicateJaccard:  r.DuplicateJaccard,
		EntityMinKeep:     r.EntityMinKeep,
		MinFusedScore:     r.MinFusedScore,
		MinDistinctDocs:   r.MinDistinctDocs,
		ContextK:          r.ContextK,
		ContextCharBudget: r.ContextCharBudget,
		RewriteEnabled:    r.RewriteEnabled,
		RewriteN:          r.RewriteN,
		RelevanceEnabled:  r.RelevanceEnabled,
	}
}
