package rag

import (
	"fmt"
	"strings"
)

// Canonical answer strings. API consumers and tests match on them exactly.
const (
	// RefusalAnswer is the canonical no-evidence answer.
	RefusalAnswer = "This information is not found in the provided sources."
	// DisabledAnswer is returned when generation is switched off.
	DisabledAnswer = "LLM is temporarily disabled. Please try again later."
	// CompoundQuestionAnswer guides reference-mode callers who ask several
	// things at once.
	CompoundQuestionAnswer = "Reference mode supports only ONE atomic question. " +
		"Please split your question or use synthesis mode."
)

// defaultRole is the reference-mode grounding contract.
const defaultRole = "You are a helpful assistant. Answer ONLY using the provided context.\n" +
	"If the user asks multiple things, answer the parts that ARE supported by the context.\n" +
	"For each part that is NOT supported by the context, explicitly say it is not found in the provided context.\n" +
	"Do NOT use external knowledge.\n"

// synthesisRole permits combining chunks but adds chunk-independence rules.
const synthesisRole = "You are a helpful assistant. Use ONLY the provided context.\n" +
	"Synthesize an answer by combining information from multiple context chunks.\n" +
	"If the user asks multiple things, answer the supported parts and mark missing parts as not found in the provided context.\n" +
	"Do NOT use external knowledge.\n" +
	"\n" +
	"Grounding rules:\n" +
	"- Treat each chunk as independent evidence; do not assume facts apply across different entities.\n" +
	"- Include a claim only if it is explicitly stated in at least one chunk.\n" +
	"- If chunks contain information about other entities unrelated to the question, ignore those parts.\n"

// customGroundingRules are appended to every caller-supplied role. A custom
// role can add instructions but can never opt out of grounding.
const customGroundingRules = "\n\nGrounding rules:\n" +
	"- Answer ONLY using the provided context.\n" +
	"- Include a claim only if it is explicitly stated in at least one chunk.\n" +
	"- If the context does not support a part of the question, say it is not found in the provided context.\n" +
	"- Do NOT use external knowledge.\n"

// parseMode resolves the requested mode; empty selects reference.
func parseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReference:
		return ModeReference, true
	case ModeSynthesis:
		return ModeSynthesis, true
	case ModeCustom:
		return ModeCustom, true
	default:
		return "", false
	}
}

// isCompoundQuestion reports whether a question appears to ask several
// things at once: a conjunction or a clause separator.
func isCompoundQuestion(question string) bool {
	q := strings.ToLower(question)
	return strings.Contains(q, " and ") || strings.Contains(q, ",") || strings.Contains(q, ";")
}

// effectiveRole resolves the system role for a mode. Custom roles are always
// wrapped with the grounding rules.
func effectiveRole(mode Mode, role string) string {
	switch mode {
	case ModeSynthesis:
		return synthesisRole
	case ModeCustom:
		trimmed := strings.TrimSpace(role)
		if trimmed == "" {
			return defaultRole
		}
		return trimmed + customGroundingRules
	default:
		return defaultRole
	}
}

// buildPrompt renders the user message: assembled context, then question.
func buildPrompt(contextText, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
}
