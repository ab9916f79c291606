package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"docqa/internal/ingest"
	"docqa/internal/storage"

	llmmocks "docqa/internal/llm/mocks"
	storagemocks "docqa/internal/storage/mocks"
	vsmocks "docqa/internal/vectorstore/mocks"
)

const shortDoc = "Calea zacatechichi grows in the dry oak highlands of central Mexico."

type ingestHandlerMocks struct {
	workspaces *storagemocks.MockWorkspaceStore
	documents  *storagemocks.MockDocumentStore
	embedder   *llmmocks.MockEmbedder
	vectors    *vsmocks.MockVectorStore
}

func newIngestHandler(t *testing.T) (*IngestHandler, *ingestHandlerMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &ingestHandlerMocks{
		workspaces: storagemocks.NewMockWorkspaceStore(ctrl),
		documents:  storagemocks.NewMockDocumentStore(ctrl),
		embedder:   llmmocks.NewMockEmbedder(ctrl),
		vectors:    vsmocks.NewMockVectorStore(ctrl),
	}
	p, err := ingest.NewPipeline(m.workspaces, m.documents, m.embedder, m.vectors, "chunks")
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	t.Cleanup(p.Release)
	return NewIngestHandler(p), m
}

// multipartUpload builds a multipart body with optional workspace_id and
// file fields.
func multipartUpload(t *testing.T, workspaceID, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if workspaceID != "" {
		if err := mw.WriteField("workspace_id", workspaceID); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestIngestHandler_ServeHTTP(t *testing.T) {
	t.Run("ingests a text upload", func(t *testing.T) {
		handler, m := newIngestHandler(t)

		m.workspaces.EXPECT().GetOrCreate(gomock.Any(), "botany").
			Return(storage.Workspace{ID: "botany"}, nil)
		m.embedder.EXPECT().EmbedTexts(gomock.Any(), []string{shortDoc}).
			Return([][]float32{{0.1, 0.2, 0.3}}, nil)
		m.documents.EXPECT().InsertWithChunks(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, doc *storage.Document, chunks []*storage.Chunk) error {
				doc.ID = 7
				for i, chunk := range chunks {
					chunk.ID = int64(100 + i)
					chunk.DocumentID = doc.ID
				}
				return nil
			})
		m.vectors.EXPECT().Upsert(gomock.Any(), "chunks", gomock.Any()).Return(nil)

		body, contentType := multipartUpload(t, "botany", "calea.txt", []byte(shortDoc))
		req := httptest.NewRequest(http.MethodPost, "/ingest-file", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ServeHTTP() status = %v, want %v, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var resp IngestResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if resp.WorkspaceID != "botany" {
			t.Errorf("workspace_id = %v, want botany", resp.WorkspaceID)
		}
		if resp.DocumentID != 7 {
			t.Errorf("document_id = %v, want 7", resp.DocumentID)
		}
		if resp.ChunksCount != 1 || resp.EmbeddingsCount != 1 {
			t.Errorf("counts = %d/%d, want 1/1", resp.ChunksCount, resp.EmbeddingsCount)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		handler, _ := newIngestHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/ingest-file", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusMethodNotAllowed)
		}
	})

	t.Run("missing workspace_id", func(t *testing.T) {
		handler, _ := newIngestHandler(t)

		body, contentType := multipartUpload(t, "", "calea.txt", []byte(shortDoc))
		req := httptest.NewRequest(http.MethodPost, "/ingest-file", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		handler, _ := newIngestHandler(t)

		body, contentType := multipartUpload(t, "botany", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/ingest-file", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("not a multipart form", func(t *testing.T) {
		handler, _ := newIngestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/ingest-file", bytes.NewBufferString("plain body"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("whitespace-only file", func(t *testing.T) {
		handler, _ := newIngestHandler(t)

		body, contentType := multipartUpload(t, "botany", "blank.txt", []byte("   \n\t  "))
		req := httptest.NewRequest(http.MethodPost, "/ingest-file", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("embedding backend down", func(t *testing.T) {
		handler, m := newIngestHandler(t)

		m.workspaces.EXPECT().GetOrCreate(gomock.Any(), "botany").
			Return(storage.Workspace{ID: "botany"}, nil)
		m.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("backend down"))

		body, contentType := multipartUpload(t, "botany", "calea.txt", []byte(shortDoc))
		req := httptest.NewRequest(http.MethodPost, "/ingest-file", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("vector store down", func(t *testing.T) {
		handler, m := newIngestHandler(t)

		m.workspaces.EXPECT().GetOrCreate(gomock.Any(), "botany").
			Return(storage.Workspace{ID: "botany"}, nil)
		m.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).
			Return([][]float32{{0.1, 0.2, 0.3}}, nil)
		m.documents.EXPECT().InsertWithChunks(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, doc *storage.Document, chunks []*storage.Chunk) error {
				doc.ID = 7
				return nil
			})
		m.vectors.EXPECT().Upsert(gomock.Any(), "chunks", gomock.Any()).
			Return(errors.New("qdrant unreachable"))
		// Upsert failure rolls the document back.
		m.documents.EXPECT().Delete(gomock.Any(), int64(7)).Return(nil)

		body, contentType := multipartUpload(t, "botany", "calea.txt", []byte(shortDoc))
		req := httptest.NewRequest(http.MethodPost, "/ingest-file", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusServiceUnavailable)
		}
	})
}
