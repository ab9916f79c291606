package rag

import "sort"

// vectorHit is one row of the vector source ranking, nearest first.
type vectorHit struct {
	ChunkID int64
	Score   float64
}

// lexicalHit is one row of the full-text ranking, best match first.
type lexicalHit struct {
	ChunkID int64
	// Rank is the bm25 value; lower is better.
	Rank float64
}

// fusedChunk carries a chunk's per-source ranks and the fused score.
type fusedChunk struct {
	ChunkID      int64
	VectorRank   int
	LexicalRank  int
	VectorScore  float64
	LexicalScore float64
	Score        float64
}

// fuse merges the two rankings with Reciprocal Rank Fusion:
// score = sum of 1/(k+rank) over the rankings containing the chunk, ranks
// 1-based. A chunk absent from a ranking contributes nothing for it. Order:
// fused score descending; ties prefer chunks present in both rankings, then
// lower chunk id. Deterministic for identical inputs.
func fuse(vector []vectorHit, lexical []lexicalHit, k int) []fusedChunk {
	byID := make(map[int64]*fusedChunk, len(vector)+len(lexical))

	for i, hit := range vector {
		fc := byID[hit.ChunkID]
		if fc == nil {
			fc = &fusedChunk{ChunkID: hit.ChunkID}
			byID[hit.ChunkID] = fc
		}
		if fc.VectorRank == 0 {
			fc.VectorRank = i + 1
			fc.VectorScore = hit.Score
			fc.Score += 1.0 / float64(k+i+1)
		}
	}

	for i, hit := range lexical {
		fc := byID[hit.ChunkID]
		if fc == nil {
			fc = &fusedChunk{ChunkID: hit.ChunkID}
			byID[hit.ChunkID] = fc
		}
		if fc.LexicalRank == 0 {
			fc.LexicalRank = i + 1
			fc.LexicalScore = hit.Rank
			fc.Score += 1.0 / float64(k+i+1)
		}
	}

	fused := make([]fusedChunk, 0, len(byID))
	for _, fc := range byID {
		fused = append(fused, *fc)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		inBothI := fused[i].VectorRank > 0 && fused[i].LexicalRank > 0
		inBothJ := fused[j].VectorRank > 0 && fused[j].LexicalRank > 0
		if inBothI != inBothJ {
			return inBothI
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	return fused
}
