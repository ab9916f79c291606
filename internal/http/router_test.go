package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa/internal/ingest"
	"docqa/internal/storage"

	llmmocks "docqa/internal/llm/mocks"
	ragmocks "docqa/internal/rag/mocks"
	storagemocks "docqa/internal/storage/mocks"
	vsmocks "docqa/internal/vectorstore/mocks"
)

type healthyVectorStore struct{}

func (healthyVectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return true, nil
}

type healthyDB struct{}

func (healthyDB) PingContext(ctx context.Context) error { return nil }

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	ctrl := gomock.NewController(t)

	mockEngine := ragmocks.NewMockEngine(ctrl)
	mockWorkspaces := storagemocks.NewMockWorkspaceStore(ctrl)
	mockDocuments := storagemocks.NewMockDocumentStore(ctrl)
	mockChunks := storagemocks.NewMockChunkStore(ctrl)
	mockNotes := storagemocks.NewMockNoteStore(ctrl)
	mockEmbedder := llmmocks.NewMockEmbedder(ctrl)
	mockVectors := vsmocks.NewMockVectorStore(ctrl)

	// Routes are exercised with minimal requests. Most fail validation
	// before reaching a store; the two that do not get lenient stubs.
	mockWorkspaces.EXPECT().List(gomock.Any()).Return(nil, nil).AnyTimes()
	mockWorkspaces.EXPECT().Get(gomock.Any(), gomock.Any()).Return(storage.Workspace{}, storage.ErrNotFound).AnyTimes()

	pipeline, err := ingest.NewPipeline(mockWorkspaces, mockDocuments, mockEmbedder, mockVectors, "chunks")
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	t.Cleanup(pipeline.Release)

	return &Deps{
		Engine:        mockEngine,
		Workspaces:    mockWorkspaces,
		Documents:     mockDocuments,
		Chunks:        mockChunks,
		Notes:         mockNotes,
		Vectors:       mockVectors,
		Ingest:        pipeline,
		VectorChecker: healthyVectorStore{},
		DB:            healthyDB{},
		Collection:    "chunks",
	}
}

func TestNewRouter(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "POST /chat exists",
			method:     http.MethodPost,
			path:       "/chat",
			wantStatus: http.StatusBadRequest, // Bad request due to invalid body, but route exists
		},
		{
			name:       "GET /chat method not allowed",
			method:     http.MethodGet,
			path:       "/chat",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "GET /health exists",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET /workspaces exists",
			method:     http.MethodGet,
			path:       "/workspaces",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /workspaces exists",
			method:     http.MethodPost,
			path:       "/workspaces",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "DELETE /workspaces/{id} exists",
			method:     http.MethodDelete,
			path:       "/workspaces/ghost",
			wantStatus: http.StatusNotFound, // Unknown workspace, but route and param are wired
		},
		{
			name:       "GET /documents exists",
			method:     http.MethodGet,
			path:       "/documents",
			wantStatus: http.StatusBadRequest, // Missing workspace_id
		},
		{
			name:       "DELETE /documents/{id} exists",
			method:     http.MethodDelete,
			path:       "/documents/abc",
			wantStatus: http.StatusBadRequest, // Non-numeric ID
		},
		{
			name:       "POST /ingest-file exists",
			method:     http.MethodPost,
			path:       "/ingest-file",
			wantStatus: http.StatusBadRequest, // Not multipart, but route exists
		},
		{
			name:       "GET /ingest-file method not allowed",
			method:     http.MethodGet,
			path:       "/ingest-file",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "POST /notes exists",
			method:     http.MethodPost,
			path:       "/notes",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /notes exists",
			method:     http.MethodGet,
			path:       "/notes",
			wantStatus: http.StatusBadRequest, // Missing workspace_id
		},
		{
			name:       "DELETE /notes/{id} exists",
			method:     http.MethodDelete,
			path:       "/notes/abc",
			wantStatus: http.StatusBadRequest, // Non-numeric ID
		},
		{
			name:       "GET /debug/search_chunks exists",
			method:     http.MethodGet,
			path:       "/debug/search_chunks",
			wantStatus: http.StatusBadRequest, // Missing workspace_id and q
		},
		{
			name:       "unknown path",
			method:     http.MethodGet,
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Check CORS headers are present
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
}
