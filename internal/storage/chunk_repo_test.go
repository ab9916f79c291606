package storage

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
)

// seedDocument creates the workspace if needed and inserts one document
// whose chunks hold the given contents.
func seedDocument(t *testing.T, db *sql.DB, workspaceID, source string, contents []string) (*Document, []*Chunk) {
	t.Helper()

	if _, err := NewWorkspaceRepo(db).GetOrCreate(context.Background(), workspaceID); err != nil {
		t.Fatalf("GetOrCreate(%q) error = %v", workspaceID, err)
	}

	doc := &Document{WorkspaceID: workspaceID, Source: source}
	chunks := make([]*Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &Chunk{
			ChunkIndex: i,
			Content:    content,
			PointID:    fmt.Sprintf("%s-%s-%d", workspaceID, source, i),
		}
	}
	if err := NewDocumentRepo(db).InsertWithChunks(context.Background(), doc, chunks); err != nil {
		t.Fatalf("InsertWithChunks(%q) error = %v", source, err)
	}
	return doc, chunks
}

func TestChunkRepo_GetByIDs(t *testing.T) {
	db := newTestDB(t)
	_, chunks := seedDocument(t, db, "botany", "ferns.md", []string{
		"ferns grow in forests",
		"ferns prefer shade",
	})

	repo := NewChunkRepo(db)

	got, err := repo.GetByIDs(context.Background(), []int64{chunks[0].ID, chunks[1].ID})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByIDs() returned %d chunks, want 2", len(got))
	}
	for _, c := range got {
		if c.Source != "ferns.md" {
			t.Errorf("GetByIDs() chunk %d Source = %q, want %q", c.ID, c.Source, "ferns.md")
		}
		if c.Content == "" {
			t.Errorf("GetByIDs() chunk %d has empty content", c.ID)
		}
	}
}

func TestChunkRepo_GetByIDs_Empty(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	got, err := repo.GetByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetByIDs() returned %d chunks, want 0", len(got))
	}
}

func TestChunkRepo_GetByIDs_SkipsMissing(t *testing.T) {
	db := newTestDB(t)
	_, chunks := seedDocument(t, db, "botany", "ferns.md", []string{"ferns grow in forests"})

	repo := NewChunkRepo(db)

	got, err := repo.GetByIDs(context.Background(), []int64{chunks[0].ID, 9999})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("GetByIDs() returned %d chunks, want 1", len(got))
	}
}

func TestChunkRepo_SearchText(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{
		"ferns ferns and more ferns",
		"ferns near the creek",
		"lichens tolerate drought",
	})

	repo := NewChunkRepo(db)

	hits, err := repo.SearchText(context.Background(), "botany", []string{"ferns"}, 10)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("SearchText() returned %d hits, want 2", len(hits))
	}

	// The chunk mentioning ferns three times ranks above the single mention
	if hits[0].ChunkIndex != 0 {
		t.Errorf("SearchText() best hit ChunkIndex = %d, want 0", hits[0].ChunkIndex)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].Rank > hits[i].Rank {
			t.Errorf("SearchText() hits not ordered by rank: %v > %v", hits[i-1].Rank, hits[i].Rank)
		}
	}
	if hits[0].Content == "" || hits[0].Source != "ferns.md" {
		t.Errorf("SearchText() hit not joined with document: %+v", hits[0])
	}
}

func TestChunkRepo_SearchText_AnyTermMatches(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "plants.md", []string{
		"ferns grow in forests",
		"mosses need moisture",
		"lichens tolerate drought",
	})

	repo := NewChunkRepo(db)

	hits, err := repo.SearchText(context.Background(), "botany", []string{"ferns", "mosses"}, 10)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("SearchText() returned %d hits, want 2 (one per matching term)", len(hits))
	}
}

func TestChunkRepo_SearchText_WorkspaceIsolation(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{"ferns grow in forests"})
	seedDocument(t, db, "zoology", "penguins.md", []string{"penguins eat fish, not ferns"})

	repo := NewChunkRepo(db)

	hits, err := repo.SearchText(context.Background(), "botany", []string{"ferns"}, 10)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("SearchText() returned %d hits, want 1", len(hits))
	}
	if hits[0].Source != "ferns.md" {
		t.Errorf("SearchText() leaked a hit from another workspace: %+v", hits[0])
	}
}

func TestChunkRepo_SearchText_NoTerms(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	hits, err := repo.SearchText(context.Background(), "botany", nil, 10)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("SearchText() with no terms returned %d hits, want 0", len(hits))
	}
}

func TestChunkRepo_SearchText_Limit(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{
		"ferns one", "ferns two", "ferns three", "ferns four",
	})

	repo := NewChunkRepo(db)

	hits, err := repo.SearchText(context.Background(), "botany", []string{"ferns"}, 2)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("SearchText() returned %d hits, want 2", len(hits))
	}
}

func TestChunkRepo_DocFrequencies(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{
		"ferns grow in forests",
		"ferns prefer shade",
		"mosses need moisture",
	})

	repo := NewChunkRepo(db)

	freqs, err := repo.DocFrequencies(context.Background(), []string{"ferns", "mosses", "cacti"})
	if err != nil {
		t.Fatalf("DocFrequencies() error = %v", err)
	}

	if freqs["ferns"] != 2 {
		t.Errorf("DocFrequencies()[ferns] = %d, want 2", freqs["ferns"])
	}
	if freqs["mosses"] != 1 {
		t.Errorf("DocFrequencies()[mosses] = %d, want 1", freqs["mosses"])
	}
	if _, ok := freqs["cacti"]; ok {
		t.Error("DocFrequencies() should omit terms that occur nowhere")
	}
}

func TestChunkRepo_DocFrequencies_NoTerms(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	freqs, err := repo.DocFrequencies(context.Background(), nil)
	if err != nil {
		t.Fatalf("DocFrequencies() error = %v", err)
	}
	if len(freqs) != 0 {
		t.Errorf("DocFrequencies() = %v, want empty map", freqs)
	}
}

func TestChunkRepo_ListPointIDsByDocument(t *testing.T) {
	db := newTestDB(t)
	doc, _ := seedDocument(t, db, "botany", "ferns.md", []string{"a", "b", "c"})

	repo := NewChunkRepo(db)

	ids, err := repo.ListPointIDsByDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("ListPointIDsByDocument() error = %v", err)
	}

	want := []string{"botany-ferns.md-0", "botany-ferns.md-1", "botany-ferns.md-2"}
	if len(ids) != len(want) {
		t.Fatalf("ListPointIDsByDocument() returned %d IDs, want %d", len(ids), len(want))
	}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("ListPointIDsByDocument() ID[%d] = %v, want %v", i, id, want[i])
		}
	}
}

func TestChunkRepo_CountByWorkspace(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{"a", "b"})
	seedDocument(t, db, "zoology", "penguins.md", []string{"c"})

	repo := NewChunkRepo(db)

	count, err := repo.CountByWorkspace(context.Background(), "botany")
	if err != nil {
		t.Fatalf("CountByWorkspace() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountByWorkspace() = %d, want 2", count)
	}

	count, err = repo.CountByWorkspace(context.Background(), "missing")
	if err != nil {
		t.Fatalf("CountByWorkspace() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountByWorkspace() for missing workspace = %d, want 0", count)
	}
}

func TestChunkRepo_ScanContent(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{
		"Ferns grow in damp forests",
		"Mosses carpet the forest floor",
	})
	seedDocument(t, db, "geology", "rocks.md", []string{"Granite forests of stone"})

	repo := NewChunkRepo(db)

	got, err := repo.ScanContent(context.Background(), "botany", "FOREST", 10)
	if err != nil {
		t.Fatalf("ScanContent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ScanContent() returned %d chunks, want 2", len(got))
	}
	// Newest chunk first.
	if got[0].ID <= got[1].ID {
		t.Errorf("ScanContent() order = [%d, %d], want descending IDs", got[0].ID, got[1].ID)
	}
	for _, c := range got {
		if c.Source != "ferns.md" {
			t.Errorf("ScanContent() chunk %d Source = %q, want %q", c.ID, c.Source, "ferns.md")
		}
	}
}

func TestChunkRepo_ScanContent_Limit(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{
		"fern one", "fern two", "fern three",
	})

	repo := NewChunkRepo(db)

	got, err := repo.ScanContent(context.Background(), "botany", "fern", 2)
	if err != nil {
		t.Fatalf("ScanContent() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ScanContent() returned %d chunks, want 2", len(got))
	}
}

func TestChunkRepo_ScanContent_NoMatch(t *testing.T) {
	db := newTestDB(t)
	seedDocument(t, db, "botany", "ferns.md", []string{"Ferns grow in damp forests"})

	repo := NewChunkRepo(db)

	got, err := repo.ScanContent(context.Background(), "botany", "cactus", 10)
	if err != nil {
		t.Fatalf("ScanContent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ScanContent() returned %d chunks, want 0", len(got))
	}
}

func TestBuildMatchExpr(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		want  string
	}{
		{
			name:  "single term",
			terms: []string{"ferns"},
			want:  `"ferns"`,
		},
		{
			name:  "multiple terms joined with OR",
			terms: []string{"ferns", "mosses"},
			want:  `"ferns" OR "mosses"`,
		},
		{
			name:  "empty terms skipped",
			terms: []string{"", "ferns", ""},
			want:  `"ferns"`,
		},
		{
			name:  "no terms",
			terms: nil,
			want:  "",
		},
		{
			name:  "embedded quotes escaped",
			terms: []string{`fer"ns`},
			want:  `"fer""ns"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildMatchExpr(tt.terms); got != tt.want {
				t.Errorf("buildMatchExpr(%v) = %q, want %q", tt.terms, got, tt.want)
			}
		})
	}
}
