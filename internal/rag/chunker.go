package rag

import (
	"strings"
)

// Chunker defaults. Sized for embedding models with modest input windows;
// the overlap keeps sentences that straddle a boundary retrievable from
// either side.
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping chunks, preferring
// paragraph boundaries over hard cuts.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker with the given chunk size and overlap in
// characters. Non-positive size falls back to DefaultChunkSize; overlap is
// clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}

	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into chunks of at most the configured size. Paragraphs
// are packed together while they fit; a paragraph longer than the chunk
// size is split with overlapping windows. Returns nil for blank input.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range splitParagraphs(text) {
		if len(para) > c.size {
			flush()
			chunks = append(chunks, c.splitLong(para)...)
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > c.size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

// splitLong cuts an oversized paragraph into overlapping windows, breaking
// at the last whitespace before the limit when one exists.
func (c *Chunker) splitLong(text string) []string {
	var chunks []string

	for len(text) > c.size {
		cut := c.size
		if idx := strings.LastIndexAny(text[:c.size], " \t\n"); idx > c.size/2 {
			cut = idx
		}

		chunks = append(chunks, strings.TrimSpace(text[:cut]))

		next := cut - c.overlap
		if next <= 0 {
			next = cut
		}
		text = strings.TrimSpace(text[next:])
	}

	if text != "" {
		chunks = append(chunks, text)
	}

	return chunks
}

// splitParagraphs breaks text on blank lines, dropping empty segments.
func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
