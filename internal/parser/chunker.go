// Package parser splits extracted document text into overlapping chunks
// suitable for embedding.
package parser

import (
	"strings"
	"unicode"
)

// Default chunking parameters, overridable via configuration.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Split splits text into spans of at most size runes, with overlap runes
// shared between consecutive spans. Sizes are measured in runes so
// multi-byte input is never cut mid-character.
//
// Cut points prefer paragraph breaks, then line breaks, then sentence
// boundaries, then spaces; a hard cut is the last resort. Spans are
// contiguous slices of the input: each span starts at most overlap runes
// before the previous span ends, so concatenating the spans with overlaps
// removed reproduces the input with no gaps.
//
// Empty or all-whitespace input yields no spans. The same input and
// parameters always yield the same result.
func Split(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	n := len(runes)

	var spans []string
	start := 0
	for start < n {
		if n-start <= size {
			spans = append(spans, string(runes[start:]))
			break
		}

		cut := cutPoint(runes, start, start+size)
		spans = append(spans, string(runes[start:cut]))

		// Step back by the overlap, but always make forward progress.
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return spans
}

// cutPoint returns the best split position in (start, limit], trying
// separators from coarsest to finest. limit < len(runes) is guaranteed by
// the caller.
func cutPoint(runes []rune, start, limit int) int {
	// Paragraph break: cut after "\n\n".
	for i := limit - 2; i > start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}

	// Line break.
	for i := limit - 1; i > start; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}

	// Sentence boundary: terminator followed by whitespace.
	for i := limit - 2; i > start; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}

	// Word boundary.
	for i := limit - 1; i > start; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}

	// No separator in the window; hard cut.
	return limit
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
