package rag

import "strings"

// contextSeparator joins chunk texts in the assembled context.
const contextSeparator = "\n\n---\n\n"

// assembleContext selects whole chunks in order until the chunk count cap
// or the content budget binds, whichever comes first. A chunk is never
// truncated, and the first chunk is always taken so a positive gate
// decision cannot produce an empty context.
func assembleContext(candidates []Candidate, contextK, charBudget int) []Candidate {
	if contextK <= 0 || len(candidates) == 0 {
		return nil
	}

	selected := make([]Candidate, 0, contextK)
	total := 0
	for _, c := range candidates {
		if len(selected) == contextK {
			break
		}
		if len(selected) > 0 && total+len(c.Content) > charBudget {
			break
		}
		selected = append(selected, c)
		total += len(c.Content)
	}
	return selected
}

// joinContext renders the selected chunks into the prompt context string.
func joinContext(selected []Candidate) string {
	parts := make([]string, 0, len(selected))
	for _, c := range selected {
		if c.Content == "" {
			continue
		}
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, contextSeparator)
}
