package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverageGate(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		cfg        Config
		candidates []Candidate
		want       Decision
		reason     string
	}{
		{
			name:       "no candidates",
			cfg:        cfg,
			candidates: nil,
			want:       NoAnswer,
			reason:     "no candidates survived",
		},
		{
			name: "top score below floor",
			cfg:  cfg,
			candidates: []Candidate{
				makeCandidate(1, 1, proseChunk, 0.002, 30, 0),
				makeCandidate(2, 2, proseChunk, 0.001, 31, 0),
			},
			want:   NoAnswer,
			reason: "below floor",
		},
		{
			name: "too few distinct documents",
			cfg: func() Config {
				c := cfg
				c.MinDistinctDocs = 2
				return c
			}(),
			candidates: []Candidate{
				makeCandidate(1, 7, proseChunk, 0.033, 1, 1),
				makeCandidate(2, 7, proseChunk, 0.016, 2, 0),
			},
			want:   NoAnswer,
			reason: "1 distinct documents, need 2",
		},
		{
			name: "evidence sufficient",
			cfg:  cfg,
			candidates: []Candidate{
				makeCandidate(1, 1, proseChunk, 0.033, 1, 1),
			},
			want:   Proceed,
			reason: "evidence sufficient",
		},
		{
			name: "top score scan is order independent",
			cfg:  cfg,
			candidates: []Candidate{
				makeCandidate(1, 1, proseChunk, 0.001, 30, 0),
				makeCandidate(2, 2, proseChunk, 0.033, 1, 1),
			},
			want:   Proceed,
			reason: "evidence sufficient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coverageGate(tt.cfg, tt.candidates)
			assert.Equal(t, tt.want, got.Decision)
			assert.Contains(t, got.Reason, tt.reason)
		})
	}
}
