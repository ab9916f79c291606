package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		name         string
		answer       string
		contextText  string
		want         string
		wantOverride bool
	}{
		{
			name:         "clean answer passes through trimmed",
			answer:       "  The leaves are brewed into a bitter tea.\n",
			contextText:  proseChunk,
			want:         "The leaves are brewed into a bitter tea.",
			wantOverride: false,
		},
		{
			name:         "empty answer becomes the refusal",
			answer:       "   ",
			contextText:  proseChunk,
			want:         RefusalAnswer,
			wantOverride: true,
		},
		{
			name:         "pure hedge collapses to the refusal",
			answer:       "This information is not found in the provided sources.",
			contextText:  proseChunk,
			want:         RefusalAnswer,
			wantOverride: true,
		},
		{
			name:         "unsupported claim mixed with a hedge collapses",
			answer:       "Martian greenhouses cultivate it widely, though the exact region is not mentioned.",
			contextText:  proseChunk,
			want:         RefusalAnswer,
			wantOverride: true,
		},
		{
			name:         "supported claim mixed with a hedge survives",
			answer:       "The bitter tea is sipped slowly before sleep; the harvest season is not mentioned.",
			contextText:  proseChunk,
			want:         "The bitter tea is sipped slowly before sleep; the harvest season is not mentioned.",
			wantOverride: false,
		},
		{
			name:         "hedge detection is case-insensitive",
			answer:       "NO INFORMATION about this plant.",
			contextText:  proseChunk,
			want:         RefusalAnswer,
			wantOverride: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, override := normalizeAnswer(tt.answer, tt.contextText)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOverride, override)
		})
	}
}

func TestClaimSupport(t *testing.T) {
	t.Run("full support", func(t *testing.T) {
		assert.Equal(t, 1.0, claimSupport("bitter tea before sleep", proseChunk))
	})

	t.Run("no support", func(t *testing.T) {
		assert.Equal(t, 0.0, claimSupport("martian greenhouse", proseChunk))
	})

	t.Run("empty answer", func(t *testing.T) {
		assert.Equal(t, 0.0, claimSupport("", proseChunk))
	})

	t.Run("stopwords carry no weight", func(t *testing.T) {
		assert.Equal(t, 0.0, claimSupport("the of and which", proseChunk))
	})
}
