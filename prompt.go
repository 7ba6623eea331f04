package ctxmemgem

import "strings"

// ContextSeparator visually divides retrieved chunks inside the assembled
// prompt.
const ContextSeparator = "\n\n---\n\n"

// AssemblePrompt joins snippets in rank order, most relevant first, and
// wraps them with the instruction scaffold for the synthesis call. Assembly
// is deterministic: the same snippets and question always produce the same
// prompt. Length limits are the synthesis collaborator's concern, nothing
// is truncated here.
func AssemblePrompt(snippets []string, question string) string {
	var b strings.Builder

	b.WriteString("You are an expert on the following codebase. ")
	b.WriteString("Answer the question using only the provided context.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(snippets, ContextSeparator))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)

	return b.String()
}
