package storage

import (
	"context"
	"testing"
)

func TestWorkspaceRepo_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkspaceRepo(db)

	ws, err := repo.GetOrCreate(context.Background(), "botany")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if ws.ID != "botany" {
		t.Errorf("GetOrCreate() ID = %q, want %q", ws.ID, "botany")
	}
	if ws.CreatedAt.IsZero() {
		t.Error("GetOrCreate() CreatedAt should be set")
	}

	// Calling again returns the same workspace, not a new one
	again, err := repo.GetOrCreate(context.Background(), "botany")
	if err != nil {
		t.Fatalf("GetOrCreate() second call error = %v", err)
	}
	if again.ID != ws.ID || !again.CreatedAt.Equal(ws.CreatedAt) {
		t.Errorf("GetOrCreate() second call = %+v, want %+v", again, ws)
	}

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() returned %d workspaces, want 1", len(list))
	}
}

func TestWorkspaceRepo_Get_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkspaceRepo(db)

	_, err := repo.Get(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestWorkspaceRepo_List_OrderedByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkspaceRepo(db)

	for _, id := range []string{"zoology", "botany", "mycology"} {
		if _, err := repo.GetOrCreate(context.Background(), id); err != nil {
			t.Fatalf("GetOrCreate(%q) error = %v", id, err)
		}
	}

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"botany", "mycology", "zoology"}
	if len(list) != len(want) {
		t.Fatalf("List() returned %d workspaces, want %d", len(list), len(want))
	}
	for i, ws := range list {
		if ws.ID != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, ws.ID, want[i])
		}
	}
}

func TestWorkspaceRepo_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkspaceRepo(db)

	if _, err := repo.GetOrCreate(context.Background(), "botany"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	// Give the workspace a document with chunks and a note
	docRepo := NewDocumentRepo(db)
	doc := &Document{WorkspaceID: "botany", Source: "ferns.md"}
	chunks := []*Chunk{
		{ChunkIndex: 0, Content: "ferns grow in forests", PointID: "p1"},
		{ChunkIndex: 1, Content: "ferns prefer shade", PointID: "p2"},
	}
	if err := docRepo.InsertWithChunks(context.Background(), doc, chunks); err != nil {
		t.Fatalf("InsertWithChunks() error = %v", err)
	}

	noteRepo := NewNoteRepo(db)
	note := &Note{WorkspaceID: "botany", Question: "q", Answer: "a", Sources: []string{"ferns.md"}}
	if err := noteRepo.Insert(context.Background(), note); err != nil {
		t.Fatalf("Insert() note error = %v", err)
	}

	if err := repo.Delete(context.Background(), "botany"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.Get(context.Background(), "botany"); err != ErrNotFound {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Documents, chunks and notes are gone too
	for _, q := range []string{
		"SELECT COUNT(*) FROM documents",
		"SELECT COUNT(*) FROM chunks",
		"SELECT COUNT(*) FROM notes",
	} {
		var count int
		if err := db.QueryRow(q).Scan(&count); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		if count != 0 {
			t.Errorf("%s = %d, want 0", q, count)
		}
	}
}

func TestWorkspaceRepo_Delete_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkspaceRepo(db)

	if err := repo.Delete(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
