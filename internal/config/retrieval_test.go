package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRetrievalFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retrieval.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write retrieval file: %v", err)
	}
	return path
}

func TestLoadRetrieval(t *testing.T) {
	tests := []struct {
		name    string
		file    string // empty means no file
		wantErr bool
		check   func(Retrieval) bool
	}{
		{
			name: "no file returns defaults",
			check: func(r Retrieval) bool {
				return r.VectorK == 20 && r.LexicalK == 50 && r.RRFK == 60 &&
					r.ContextK == 8 && r.ContextCharBudget == 6000 &&
					r.MinFusedScore == 0.01 && r.MinDistinctDocs == 1 &&
					r.RewriteEnabled && r.RewriteN == 3 && r.RelevanceEnabled
			},
		},
		{
			name: "partial file keeps defaults for absent fields",
			file: "version = 1\n\n[retrieval]\nvector_k = 10\nmin_distinct_documents = 2\n",
			check: func(r Retrieval) bool {
				return r.VectorK == 10 && r.MinDistinctDocs == 2 &&
					r.LexicalK == 50 && r.RRFK == 60 && r.ContextK == 8
			},
		},
		{
			name: "filter chain can be reordered and shortened",
			file: "version = 1\n\n[retrieval]\nfilter_chain = [\"duplicate\", \"noise\"]\n",
			check: func(r Retrieval) bool {
				return len(r.FilterChain) == 2 &&
					r.FilterChain[0] == "duplicate" && r.FilterChain[1] == "noise"
			},
		},
		{
			name:    "unknown filter rejected",
			file:    "version = 1\n\n[retrieval]\nfilter_chain = [\"noise\", \"semantic\"]\n",
			wantErr: true,
		},
		{
			name:    "missing version rejected",
			file:    "[retrieval]\nvector_k = 10\n",
			wantErr: true,
		},
		{
			name:    "future version rejected",
			file:    "version = 2\n\n[retrieval]\nvector_k = 10\n",
			wantErr: true,
		},
		{
			name:    "zero context_k rejected",
			file:    "version = 1\n\n[retrieval]\ncontext_k = 0\n",
			wantErr: true,
		},
		{
			name:    "negative min_fused_score rejected",
			file:    "version = 1\n\n[retrieval]\nmin_fused_score = -0.5\n",
			wantErr: true,
		},
		{
			name:    "jaccard above one rejected",
			file:    "version = 1\n\n[retrieval]\nduplicate_jaccard = 1.5\n",
			wantErr: true,
		},
		{
			name:    "malformed TOML rejected",
			file:    "version = [retrieval\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeRetrievalFile(t, tt.file)
			}

			got, err := LoadRetrieval(path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("LoadRetrieval() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadRetrieval() unexpected error: %v", err)
			}
			if tt.check != nil && !tt.check(got) {
				t.Errorf("LoadRetrieval() = %+v, check failed", got)
			}
		})
	}
}

func TestLoadRetrieval_MissingFile(t *testing.T) {
	_, err := LoadRetrieval(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Error("LoadRetrieval() with a missing path should error")
	}
}
