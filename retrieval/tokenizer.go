package retrieval

import (
	"strings"
	"unicode"
)

// Tokenizer counts tokens for context budgeting. The conversation history
// trimmer uses it to keep synthesis prompts inside the model window.
type Tokenizer interface {
	CountTokens(text string) int
}

// HeuristicTokenizer approximates token counts without a BPE vocabulary:
// each Han rune, latin word, number and punctuation mark counts as one.
// Close enough for budgeting; swap in the tiktoken implementation for exact
// counts.
type HeuristicTokenizer struct{}

// CountTokens implements Tokenizer.
func (HeuristicTokenizer) CountTokens(text string) int {
	count := 0
	inWord := false
	flush := func() {
		if inWord {
			count++
			inWord = false
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.Is(unicode.Han, r):
			flush()
			count++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			inWord = true
		default:
			flush()
			count++
		}
	}
	flush()
	return count
}

// TruncateByTokens trims text to roughly maxTokens, cutting at a whitespace
// or CJK boundary where possible.
func TruncateByTokens(t Tokenizer, text string, maxTokens int) string {
	if maxTokens <= 0 || t.CountTokens(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.CountTokens(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return strings.TrimSpace(string(runes[:lo]))
}
