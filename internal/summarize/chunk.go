package summarize

import (
	"strings"
	"unicode/utf8"
)

const maxContentLength = 400000

// truncate caps content at maxContentLength, backing off to the last space so
// the cut never lands mid-word.
func truncate(content string) string {
	if len(content) < maxContentLength {
		return content
	}
	cut := content[:maxContentLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}

// splitChunks divides content into pieces of at most chunkSize bytes, each
// cut moved back to a sentence end or whitespace so no word is split.
func splitChunks(content string, chunkSize int) []string {
	if chunkSize <= 0 || len(content) <= chunkSize {
		return []string{content}
	}
	var chunks []string
	for start := 0; start < len(content); {
		end := start + chunkSize
		if end >= len(content) {
			chunks = append(chunks, content[start:])
			break
		}
		chunk := content[start:end]
		if idx := boundaryIndex(chunk); idx > 0 {
			chunk = chunk[:idx]
		} else {
			// No boundary in the whole window; at least keep runes intact.
			// Back up until the tail decodes as a complete rune so neither
			// continuation bytes nor an orphan lead byte is left behind.
			for len(chunk) > 0 {
				r, size := utf8.DecodeLastRuneInString(chunk)
				if r != utf8.RuneError || size > 1 {
					break
				}
				chunk = chunk[:len(chunk)-1]
			}
			if chunk == "" {
				// Window smaller than a single rune; emit it as-is so the
				// loop always advances.
				chunk = content[start:end]
			}
		}
		chunks = append(chunks, chunk)
		start += len(chunk)
	}
	return chunks
}

// boundaryIndex finds the best place to end a chunk: a sentence terminator
// first, any whitespace otherwise.
func boundaryIndex(chunk string) int {
	if idx := strings.LastIndex(chunk, ". "); idx > 0 {
		return idx + 1
	}
	if idx := strings.LastIndexByte(chunk, '\n'); idx > 0 {
		return idx + 1
	}
	if idx := strings.LastIndexByte(chunk, ' '); idx > 0 {
		return idx
	}
	return -1
}
