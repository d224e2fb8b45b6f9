package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sweetpotato0/health-agent/pkg/logging"
	"github.com/sweetpotato0/health-agent/vector"
)

// KnowledgeBase is the local Searcher: documents are chunked, embedded and
// stored in a vector store; queries are answered by similarity search with
// optional MMR diversification.
type KnowledgeBase struct {
	store    vector.Store
	embedder vector.Embedder
	logger   *slog.Logger

	chunkSize    int
	chunkOverlap int
	mmrLambda    float32 // 0 disables MMR
	fetchFactor  int     // over-fetch multiplier when MMR is on
}

// KnowledgeBaseOption configures a KnowledgeBase.
type KnowledgeBaseOption func(*KnowledgeBase)

// WithChunking overrides the ingest chunk size and overlap (runes).
func WithChunking(size, overlap int) KnowledgeBaseOption {
	return func(kb *KnowledgeBase) {
		kb.chunkSize = size
		kb.chunkOverlap = overlap
	}
}

// WithMMR enables Max Marginal Relevance on search results. lambda weighs
// relevance against diversity; 0.7 is a reasonable default.
func WithMMR(lambda float32) KnowledgeBaseOption {
	return func(kb *KnowledgeBase) { kb.mmrLambda = lambda }
}

// WithKnowledgeLogger overrides the default package logger.
func WithKnowledgeLogger(logger *slog.Logger) KnowledgeBaseOption {
	return func(kb *KnowledgeBase) {
		if logger != nil {
			kb.logger = logger
		}
	}
}

// NewKnowledgeBase builds a knowledge base over a vector store and embedder.
func NewKnowledgeBase(store vector.Store, embedder vector.Embedder, opts ...KnowledgeBaseOption) *KnowledgeBase {
	kb := &KnowledgeBase{
		store:        store,
		embedder:     embedder,
		logger:       logging.WithComponent("knowledge_base"),
		chunkSize:    800,
		chunkOverlap: 120,
		fetchFactor:  3,
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb
}

// Ingest chunks, embeds and stores documents. Document IDs are assigned when
// missing; chunk IDs derive from the document ID.
func (kb *KnowledgeBase) Ingest(ctx context.Context, docs ...Document) error {
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		chunks := splitChunks(doc.Content, "\n\n", kb.chunkSize, kb.chunkOverlap)
		if len(chunks) == 0 {
			continue
		}

		vectors, err := kb.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embed document %s: expected %d vectors, got %d", doc.ID, len(chunks), len(vectors))
		}

		for i, chunk := range chunks {
			meta := map[string]string{"document_id": doc.ID}
			if doc.Title != "" {
				meta["title"] = doc.Title
			}
			for k, v := range doc.Meta {
				meta[k] = v
			}
			entry := &vector.Entry{
				ID:     fmt.Sprintf("%s_chunk_%d", doc.ID, i+1),
				Vector: vectors[i],
				Text:   chunk,
				Meta:   meta,
			}
			if err := kb.store.Upsert(ctx, entry); err != nil {
				return fmt.Errorf("store chunk %s: %w", entry.ID, err)
			}
		}
		kb.logger.Debug("document ingested", "document_id", doc.ID, "chunks", len(chunks))
	}
	return nil
}

// Search embeds the query and returns the top-k chunks as documents labeled
// with the knowledge-base source.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = 4
	}

	queryVec, err := kb.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetchK := k
	if kb.mmrLambda > 0 {
		fetchK = k * kb.fetchFactor
	}
	entries, err := kb.store.Search(ctx, queryVec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}

	if kb.mmrLambda > 0 {
		entries = mmrSelect(queryVec, entries, kb.mmrLambda, k)
	} else if len(entries) > k {
		entries = entries[:k]
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		doc := Document{
			ID:      e.ID,
			Content: e.Text,
			Source:  SourceKnowledgeBase,
			Score:   vector.CosineSimilarity(queryVec, e.Vector),
			Meta:    e.Meta,
		}
		if e.Meta != nil {
			doc.Title = e.Meta["title"]
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

var _ Searcher = (*KnowledgeBase)(nil)
