package rag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validPrompt = `name: rag_answer
description: Answers questions from document context.
system: |
  You answer using only the provided context.
template: |
  Context:
  {{.Context}}

  Question: {{.Question}}
`

func TestLoadPrompts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePrompt(t, dir, "rag_answer.yaml", validPrompt)
	writePrompt(t, dir, "notes.txt", "ignored")

	registry, err := LoadPrompts(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"rag_answer"}, registry.Names())

	prompt, err := registry.Get("rag_answer")
	require.NoError(t, err)
	assert.Contains(t, prompt.System, "provided context")

	rendered, err := prompt.Render(promptData{
		Question: "what is pgvector?",
		Context:  "[doc #0]\npgvector adds vector search to Postgres",
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "what is pgvector?")
	assert.Contains(t, rendered, "vector search")
}

func TestLoadPromptsFailures(t *testing.T) {
	t.Parallel()

	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := LoadPrompts(t.TempDir())
		assert.ErrorContains(t, err, "no prompt files")
	})

	t.Run("missing name", func(t *testing.T) {
		dir := t.TempDir()
		writePrompt(t, dir, "bad.yaml", "template: hello")
		_, err := LoadPrompts(dir)
		assert.ErrorContains(t, err, "missing a name")
	})

	t.Run("empty template", func(t *testing.T) {
		dir := t.TempDir()
		writePrompt(t, dir, "bad.yaml", "name: broken")
		_, err := LoadPrompts(dir)
		assert.ErrorContains(t, err, "empty template")
	})

	t.Run("malformed template", func(t *testing.T) {
		dir := t.TempDir()
		writePrompt(t, dir, "bad.yaml", "name: broken\ntemplate: '{{.Question'")
		_, err := LoadPrompts(dir)
		assert.ErrorContains(t, err, "failed to parse template")
	})

	t.Run("duplicate name", func(t *testing.T) {
		dir := t.TempDir()
		writePrompt(t, dir, "one.yaml", validPrompt)
		writePrompt(t, dir, "two.yaml", validPrompt)
		_, err := LoadPrompts(dir)
		assert.ErrorContains(t, err, "duplicate prompt name")
	})
}

func TestGetUnknownPrompt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePrompt(t, dir, "rag_answer.yaml", validPrompt)

	registry, err := LoadPrompts(dir)
	require.NoError(t, err)

	_, err = registry.Get("summarize")
	assert.ErrorIs(t, err, ErrPromptNotFound)
}
