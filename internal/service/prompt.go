package service

import (
	"fmt"
	"strings"
)

const (
	// ContextExcerptChars bounds the excerpt rendered per context document,
	// keeping total prompt size bounded regardless of source size.
	ContextExcerptChars = 1500
)

// SystemInstruction is the fixed framing sent with every generation call:
// persona, domain, grounding discipline, and emergency escalation.
const SystemInstruction = `You are Sentra, a campus safety assistant. You answer questions from students and staff about safety on campus.

Rules:
- Answer primarily from the campus documents provided in the prompt. Cite them by their bracketed number, e.g. [1].
- If the documents do not contain enough information to answer, say so explicitly. You may then offer general safety guidance, clearly marked as general advice that is not specific to this campus.
- Never invent campus-specific facts such as phone numbers, office locations, or procedures that are not in the provided documents.
- If the question sounds like an emergency or describes immediate danger, begin your answer with immediate-action guidance (call local emergency services, move to safety) before anything else.
- Keep answers concise and practical.`

// BuildPrompt renders the user prompt for the generator. Each context
// document gets a 1-based index, its title, its category, a relevance
// percentage when a similarity score exists, and an excerpt of its body
// bounded to ContextExcerptChars. With no context documents, the prompt
// states that no internal documents matched and instructs the generator to
// say so rather than invent institution-specific facts.
func BuildPrompt(question string, results []*RetrievalResult) string {
	var b strings.Builder

	if len(results) == 0 {
		b.WriteString("No internal campus safety documents matched this question. ")
		b.WriteString("Tell the user that no matching campus documents were found. ")
		b.WriteString("Do not invent campus-specific facts; you may offer general safety guidance only.\n\n")
		b.WriteString("Question: ")
		b.WriteString(question)
		return b.String()
	}

	b.WriteString("Answer the question using the campus safety documents below.\n\nDocuments:\n")
	for i, r := range results {
		doc := r.Document
		b.WriteString(fmt.Sprintf("[%d] %s (category: %s", i+1, doc.Title, doc.Category))
		if r.Scored {
			b.WriteString(fmt.Sprintf(", relevance: %.0f%%", r.Score*100))
		}
		b.WriteString(")\n")
		b.WriteString(excerpt(doc.Body, ContextExcerptChars))
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}

func excerpt(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max])
}
