package ingest

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 600 // Max runes per chunk (targets ~450 tokens for 512-token embedding model)
	chunkOverlap = 120
)

// chunkSeparators orders split points strongest-first so chunks break at
// paragraph boundaries before falling back to sentence and word boundaries.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

func newSplitter() textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(chunkSeparators),
	)
}

// splitText cuts extracted text into embedding-sized chunks and drops
// whitespace-only pieces.
func splitText(splitter textsplitter.RecursiveCharacter, text string) ([]string, error) {
	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, piece)
	}
	return chunks, nil
}
