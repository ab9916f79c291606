package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleContext(t *testing.T) {
	sized := func(id int64, n int) Candidate {
		return makeCandidate(id, id, strings.Repeat("a", n), 0.03, int(id), 0)
	}

	t.Run("caps at context size", func(t *testing.T) {
		in := []Candidate{sized(1, 10), sized(2, 10), sized(3, 10), sized(4, 10)}

		got := assembleContext(in, 3, 6000)

		require.Len(t, got, 3)
		assert.Equal(t, int64(1), got[0].ChunkID)
		assert.Equal(t, int64(3), got[2].ChunkID)
	})

	t.Run("stops when the budget binds", func(t *testing.T) {
		in := []Candidate{sized(1, 400), sized(2, 400), sized(3, 400)}

		got := assembleContext(in, 8, 900)

		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[1].ChunkID)
	})

	t.Run("first chunk is taken even over budget", func(t *testing.T) {
		in := []Candidate{sized(1, 7000), sized(2, 10)}

		got := assembleContext(in, 8, 6000)

		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].ChunkID)
	})

	t.Run("budget counts content only", func(t *testing.T) {
		// Three 200-char chunks fit a 600 budget exactly; separators are free.
		in := []Candidate{sized(1, 200), sized(2, 200), sized(3, 200)}

		got := assembleContext(in, 8, 600)

		assert.Len(t, got, 3)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Nil(t, assembleContext(nil, 8, 6000))
	})

	t.Run("zero context size", func(t *testing.T) {
		assert.Nil(t, assembleContext([]Candidate{sized(1, 10)}, 0, 6000))
	})
}

func TestJoinContext(t *testing.T) {
	t.Run("joins with separator", func(t *testing.T) {
		got := joinContext([]Candidate{
			makeCandidate(1, 1, "first chunk", 0.03, 1, 1),
			makeCandidate(2, 2, "second chunk", 0.02, 2, 0),
		})
		assert.Equal(t, "first chunk\n\n---\n\nsecond chunk", got)
	})

	t.Run("skips empty contents", func(t *testing.T) {
		got := joinContext([]Candidate{
			makeCandidate(1, 1, "first chunk", 0.03, 1, 1),
			makeCandidate(2, 2, "", 0.02, 2, 0),
		})
		assert.Equal(t, "first chunk", got)
	})

	t.Run("empty selection", func(t *testing.T) {
		assert.Equal(t, "", joinContext(nil))
	})
}
