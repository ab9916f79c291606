package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"docqa/internal/storage"
	storagemocks "docqa/internal/storage/mocks"
)

func TestNoteHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		body       interface{}
		mockSetup  func(*storagemocks.MockNoteStore)
		wantStatus int
	}{
		{
			name: "saves accepted answer",
			body: NoteCreateRequest{
				WorkspaceID: "botany",
				Question:    "Where does it grow?",
				Answer:      "In dry oak woodland.",
				Sources:     []string{"calea.md"},
			},
			mockSetup: func(m *storagemocks.MockNoteStore) {
				m.EXPECT().Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, note *storage.Note) error {
						if note.WorkspaceID != "botany" || note.Question != "Where does it grow?" {
							t.Errorf("unexpected note: %+v", note)
						}
						note.ID = 42
						return nil
					})
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing workspace_id",
			body: NoteCreateRequest{
				Question: "Where does it grow?",
				Answer:   "In dry oak woodland.",
			},
			mockSetup:  func(m *storagemocks.MockNoteStore) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing question",
			body: NoteCreateRequest{
				WorkspaceID: "botany",
				Answer:      "In dry oak woodland.",
			},
			mockSetup:  func(m *storagemocks.MockNoteStore) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing answer",
			body: NoteCreateRequest{
				WorkspaceID: "botany",
				Question:    "Where does it grow?",
			},
			mockSetup:  func(m *storagemocks.MockNoteStore) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid body",
			body:       "not json",
			mockSetup:  func(m *storagemocks.MockNoteStore) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store error",
			body: NoteCreateRequest{
				WorkspaceID: "botany",
				Question:    "Where does it grow?",
				Answer:      "In dry oak woodland.",
			},
			mockSetup: func(m *storagemocks.MockNoteStore) {
				m.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("db closed"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotes := storagemocks.NewMockNoteStore(ctrl)
			tt.mockSetup(mockNotes)

			handler := NewNoteHandler(mockNotes)

			var bodyBytes []byte
			if s, ok := tt.body.(string); ok {
				bodyBytes = []byte(s)
			} else {
				bodyBytes, _ = json.Marshal(tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewBuffer(bodyBytes))
			w := httptest.NewRecorder()

			handler.Create(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Create() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusCreated {
				var resp NoteCreateResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("invalid JSON response: %v", err)
				}
				if resp.ID != 42 {
					t.Errorf("id = %v, want 42", resp.ID)
				}
				if resp.WorkspaceID != "botany" {
					t.Errorf("workspace_id = %v, want botany", resp.WorkspaceID)
				}
			}
		})
	}
}

func TestNoteHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("returns notes newest first", func(t *testing.T) {
		mockNotes := storagemocks.NewMockNoteStore(ctrl)
		mockNotes.EXPECT().ListByWorkspace(gomock.Any(), "botany").Return([]storage.Note{
			{ID: 2, WorkspaceID: "botany", Question: "q2", Answer: "a2", Sources: []string{"calea.md"}, CreatedAt: time.Now()},
			{ID: 1, WorkspaceID: "botany", Question: "q1", Answer: "a1", Sources: nil, CreatedAt: time.Now()},
		}, nil)

		handler := NewNoteHandler(mockNotes)

		req := httptest.NewRequest(http.MethodGet, "/notes?workspace_id=botany", nil)
		w := httptest.NewRecorder()

		handler.List(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("List() status = %v, want %v", w.Code, http.StatusOK)
		}

		var resp NotesResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if len(resp.Notes) != 2 {
			t.Fatalf("got %d notes, want 2", len(resp.Notes))
		}
		if resp.Notes[0].ID != 2 {
			t.Errorf("first note id = %v, want 2 (newest first)", resp.Notes[0].ID)
		}
		if resp.Notes[1].Sources == nil {
			t.Error("nil sources should encode as an empty array, not null")
		}
	})

	t.Run("missing workspace_id", func(t *testing.T) {
		mockNotes := storagemocks.NewMockNoteStore(ctrl)
		handler := NewNoteHandler(mockNotes)

		req := httptest.NewRequest(http.MethodGet, "/notes", nil)
		w := httptest.NewRecorder()

		handler.List(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("List() status = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})
}

func TestNoteHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		id         string
		mockSetup  func(*storagemocks.MockNoteStore)
		wantStatus int
	}{
		{
			name: "deletes note",
			id:   "5",
			mockSetup: func(m *storagemocks.MockNoteStore) {
				m.EXPECT().Delete(gomock.Any(), int64(5)).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "unknown note",
			id:   "99",
			mockSetup: func(m *storagemocks.MockNoteStore) {
				m.EXPECT().Delete(gomock.Any(), int64(99)).Return(storage.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid id",
			id:         "abc",
			mockSetup:  func(m *storagemocks.MockNoteStore) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotes := storagemocks.NewMockNoteStore(ctrl)
			tt.mockSetup(mockNotes)

			handler := NewNoteHandler(mockNotes)

			req := withURLParam(httptest.NewRequest(http.MethodDelete, "/notes/"+tt.id, nil), "id", tt.id)
			w := httptest.NewRecorder()

			handler.Delete(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Delete() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}
