package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docqa/internal/handlers"
	"docqa/internal/ingest"
	"docqa/internal/rag"
	"docqa/internal/storage"
	"docqa/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine     rag.Engine
	Workspaces storage.WorkspaceStore
	Documents  storage.DocumentStore
	Chunks     storage.ChunkStore
	Notes      storage.NoteStore
	Vectors    vectorstore.VectorStore
	Ingest     *ingest.Pipeline

	// VectorChecker and DB are only probed by the health endpoint.
	VectorChecker handlers.CollectionChecker
	DB            handlers.Pinger

	Collection string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.Engine)
	healthHandler := handlers.NewHealthHandler(deps.VectorChecker, deps.DB, deps.Collection)
	workspaceHandler := handlers.NewWorkspaceHandler(deps.Workspaces, deps.Vectors, deps.Collection)
	documentHandler := handlers.NewDocumentHandler(deps.Documents, deps.Chunks, deps.Vectors, deps.Collection)
	ingestHandler := handlers.NewIngestHandler(deps.Ingest)
	noteHandler := handlers.NewNoteHandler(deps.Notes)
	searchHandler := handlers.NewSearchDebugHandler(deps.Chunks)

	r.Method(http.MethodPost, "/chat", chatHandler)
	r.Method(http.MethodGet, "/health", healthHandler)

	r.Get("/workspaces", workspaceHandler.List)
	r.Post("/workspaces", workspaceHandler.Create)
	r.Delete("/workspaces/{id}", workspaceHandler.Delete)

	r.Get("/documents", documentHandler.List)
	r.Delete("/documents/{id}", documentHandler.Delete)

	r.Method(http.MethodPost, "/ingest-file", ingestHandler)

	r.Post("/notes", noteHandler.Create)
	r.Get("/notes", noteHandler.List)
	r.Delete("/notes/{id}", noteHandler.Delete)

	r.Method(http.MethodGet, "/debug/search_chunks", searchHandler)

	return r
}
