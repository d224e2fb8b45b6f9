// Package retrieval provides the two document sources behind the answer
// loop: a vector-backed medical knowledge base and a web search fallback.
package retrieval

import "context"

// Source labels where a document came from. The synthesis step cites it.
type Source string

const (
	SourceKnowledgeBase Source = "医学知识库"
	SourceWeb           Source = "互联网"
)

// Document is one retrieved snippet.
type Document struct {
	ID      string
	Title   string
	Content string
	Source  Source
	Score   float32
	Meta    map[string]string
}

// Searcher is the local retrieval contract: top-k snippets, most relevant
// first.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// WebSearcher is the remote fallback. It may fail; callers degrade to a
// placeholder document instead of propagating the error to the user.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]Document, error)
}

// Contents extracts the document bodies in order.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}
