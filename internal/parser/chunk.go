package parser

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk limit in code points.
const DefaultChunkSize = 500

// Chunk splits text on whitespace and regroups the words into chunks of at
// most size code points, joined by single spaces. Words are never split; a
// word longer than size becomes a chunk of its own.
func Chunk(text string, size int) []string {
	if size < 1 {
		size = DefaultChunkSize
	}

	var chunks []string
	var b strings.Builder
	n := 0

	for _, word := range strings.Fields(text) {
		wl := utf8.RuneCountInString(word)
		if n > 0 && n+1+wl > size {
			chunks = append(chunks, b.String())
			b.Reset()
			n = 0
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(word)
		n += wl
	}
	if n > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
