package ctxmemgem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssemblePrompt(t *testing.T) {
	assert := assert.New(t)

	snippets := []string{
		"func main() { run() }",
		"run starts the HTTP listener",
	}

	prompt := AssemblePrompt(snippets, "how does the program start?")

	assert.Contains(prompt, snippets[0])
	assert.Contains(prompt, snippets[1])
	assert.Equal(1, strings.Count(prompt, ContextSeparator))
	assert.True(strings.HasSuffix(prompt, "Question: how does the program start?"))

	// Snippets stay in rank order, ahead of the question.
	first := strings.Index(prompt, snippets[0])
	second := strings.Index(prompt, snippets[1])
	question := strings.Index(prompt, "Question:")
	assert.Less(first, second)
	assert.Less(second, question)
}

func TestAssemblePromptDeterministic(t *testing.T) {
	snippets := []string{"alpha", "beta"}

	first := AssemblePrompt(snippets, "q")
	second := AssemblePrompt(snippets, "q")

	assert.Equal(t, first, second)
}

func TestAssemblePromptNoSnippets(t *testing.T) {
	assert := assert.New(t)

	prompt := AssemblePrompt(nil, "anything indexed?")

	assert.Contains(prompt, "Context:")
	assert.True(strings.HasSuffix(prompt, "Question: anything indexed?"))
}
