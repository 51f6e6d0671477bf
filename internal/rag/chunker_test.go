package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBlankInput(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	chunks := c.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplitPacksParagraphs(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	chunks := c.Split(text)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "first paragraph")
	assert.Contains(t, chunks[0], "third paragraph")
}

func TestSplitBreaksAtParagraphBoundary(t *testing.T) {
	t.Parallel()

	c := NewChunker(50, 10)
	first := strings.Repeat("a", 30)
	second := strings.Repeat("b", 30)
	chunks := c.Split(first + "\n\n" + second)

	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0])
	assert.Equal(t, second, chunks[1])
}

func TestSplitLongParagraphUsesOverlap(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	words := make([]string, 60)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
		assert.NotEmpty(t, chunk)
	}

	// Overlapping windows repeat trailing content at the head of the next
	// chunk, so total length exceeds the input.
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	assert.Greater(t, total, len(text))
}

func TestNewChunkerClampsBadConfig(t *testing.T) {
	t.Parallel()

	c := NewChunker(0, -5)
	assert.Equal(t, DefaultChunkSize, c.size)

	c = NewChunker(100, 100)
	assert.Less(t, c.overlap, c.size)
}
