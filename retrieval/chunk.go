package retrieval

import "strings"

// splitChunks splits text on the separator and windows oversized parts with
// the given overlap, so every chunk fits the embedding context.
func splitChunks(text, sep string, size, overlap int) []string {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if sep == "" {
		sep = "\n\n"
	}

	parts := strings.Split(text, sep)
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		runes := []rune(part)
		for len(runes) > size {
			chunks = append(chunks, strings.TrimSpace(string(runes[:size])))
			runes = runes[size-overlap:]
		}
		chunks = append(chunks, strings.TrimSpace(string(runes)))
	}

	if len(chunks) == 0 && strings.TrimSpace(text) != "" {
		chunks = append(chunks, strings.TrimSpace(text))
	}
	return chunks
}
