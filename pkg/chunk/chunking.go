// Package chunk splits extracted document text into pieces small enough to
// embed and index.
package chunk

import "strings"

// SplitText splits text into chunks of at most maxChunkSize characters
// without breaking words. A word longer than maxChunkSize becomes its own
// chunk. Text that already fits is returned as a single chunk; blank text
// yields no chunks.
func SplitText(text string, maxChunkSize int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() == 0 && len(word) > maxChunkSize {
			chunks = append(chunks, word)
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// SplitTextWithOverlap slices text into chunkSize-character chunks where
// each chunk repeats the last overlap characters of the previous one.
// Overlap keeps sentences that straddle a boundary retrievable from either
// side. Used for long continuous text such as scraped web pages.
func SplitTextWithOverlap(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	var chunks []string
	step := chunkSize - overlap
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
