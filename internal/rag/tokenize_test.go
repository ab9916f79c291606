package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "strips question mark and filler",
			question: "What is the habitat of Calea zacatechichi?",
			want:     "the habitat of calea zacatechichi",
		},
		{
			name:     "strips summarize and source phrases",
			question: "Summarize, based on the provided sources, the uses of mugwort",
			want:     ", , the uses of mugwort",
		},
		{
			name:     "collapses repeated whitespace",
			question: "please   give me   dream   herbs",
			want:     "dream herbs",
		},
		{
			name:     "question of only junk",
			question: "What is?",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeQuery(tt.question))
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "lowercases and splits on punctuation", text: "Calea (zacatechichi), the dream-herb!", want: []string{"calea", "zacatechichi", "the", "dream", "herb"}},
		{name: "keeps digits", text: "found at 2100 meters", want: []string{"found", "at", "2100", "meters"}},
		{name: "empty", text: "", want: nil},
		{name: "only punctuation", text: "??? --- !!!", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.text))
		})
	}
}

func TestAnchorTokens(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "drops stopwords and junk",
			question: "What is the habitat of Calea zacatechichi?",
			want:     []string{"habitat", "calea", "zacatechichi"},
		},
		{
			name:     "drops pure numbers",
			question: "plants found above 2000 meters",
			want:     []string{"plants", "found", "above", "meters"},
		},
		{
			name:     "no anchor for punctuation-only question",
			question: "???",
			want:     nil,
		},
		{
			name:     "no anchor for stopword-only question",
			question: "what is that?",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, anchorTokens(tt.question))
		})
	}
}

func TestSelectAnchors(t *testing.T) {
	freqs := map[string]int64{
		"habitat":       40,
		"calea":         2,
		"zacatechichi":  2,
		"dream":         9,
		"preparation":   5,
		"ethnobotanist": 1,
	}

	tests := []struct {
		name   string
		tokens []string
		n      int
		want   []string
	}{
		{
			name:   "rarest first, ties by token",
			tokens: []string{"habitat", "calea", "zacatechichi", "dream"},
			n:      2,
			want:   []string{"calea", "zacatechichi"},
		},
		{
			name:   "unknown token counts as rarest",
			tokens: []string{"habitat", "dream", "xolotl"},
			n:      2,
			want:   []string{"xolotl", "dream"},
		},
		{
			name:   "n larger than tokens keeps all",
			tokens: []string{"preparation", "ethnobotanist"},
			n:      4,
			want:   []string{"ethnobotanist", "preparation"},
		},
		{
			name:   "duplicates collapse before ranking",
			tokens: []string{"dream", "dream", "calea"},
			n:      4,
			want:   []string{"calea", "dream"},
		},
		{
			name:   "zero n",
			tokens: []string{"calea"},
			n:      0,
			want:   nil,
		},
		{
			name:   "no tokens",
			tokens: nil,
			n:      4,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectAnchors(tt.tokens, freqs, tt.n))
		})
	}
}
