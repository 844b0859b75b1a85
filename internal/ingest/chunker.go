package ingest

import "strings"

// splitText splits text into overlapping windows of at most size characters.
// Consecutive windows share exactly overlap characters, except possibly the
// last window, which may be shorter. Lengths are counted in runes so
// multi-byte documentation text never splits mid-character.
func splitText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
