package rag

import "fmt"

// Decision is the coverage gate outcome.
type Decision int

const (
	// Proceed means the surviving evidence justifies attempting an answer.
	Proceed Decision = iota
	// NoAnswer means the pipeline must refuse without invoking the generator.
	NoAnswer
)

// gateResult carries the decision and a reason string for logs.
type gateResult struct {
	Decision Decision
	Reason   string
}

// coverageGate decides deterministically whether the surviving candidates
// justify generation. It runs before any generation call; on NoAnswer the
// generator is never invoked.
func coverageGate(cfg Config, candidates []Candidate) gateResult {
	if len(candidates) == 0 {
		return gateResult{Decision: NoAnswer, Reason: "no candidates survived retrieval and filtering"}
	}

	top := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score > top {
			top = c.Score
		}
	}
	if top < cfg.MinFusedScore {
		return gateResult{
			Decision: NoAnswer,
			Reason:   fmt.Sprintf("top fused score %.6f below floor %.6f", top, cfg.MinFusedScore),
		}
	}

	docs := make(map[int64]struct{}, len(candidates))
	for _, c := range candidates {
		docs[c.DocumentID] = struct{}{}
	}
	if len(docs) < cfg.MinDistinctDocs {
		return gateResult{
			Decision: NoAnswer,
			Reason:   fmt.Sprintf("%d distinct documents, need %d", len(docs), cfg.MinDistinctDocs),
		}
	}

	return gateResult{Decision: Proceed, Reason: "evidence sufficient"}
}
