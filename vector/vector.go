// Package vector defines the embedding store contract behind the medical
// knowledge base, plus the similarity math shared by its implementations.
package vector

import (
	"context"
	"math"
)

// Entry is one embedded document chunk.
type Entry struct {
	ID     string
	Vector []float32
	Text   string
	Meta   map[string]string // source, category, etc.
}

// Store is the persistence contract for embedded knowledge chunks.
type Store interface {
	// Upsert inserts or replaces an entry by ID.
	Upsert(ctx context.Context, entry *Entry) error

	// Search returns the topK entries most similar to the query vector,
	// most similar first.
	Search(ctx context.Context, queryVector []float32, topK int) ([]*Entry, error)

	// Delete removes an entry by ID.
	Delete(ctx context.Context, id string) error

	// Get retrieves an entry by ID.
	Get(ctx context.Context, id string) (*Entry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)
}

// Embedder converts text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// CosineSimilarityOperator returns the pgvector operator used for ordering.
func CosineSimilarityOperator() string {
	return "<->"
}

// CosineSimilarity computes the cosine similarity of two vectors. Mismatched
// lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA)))*float32(math.Sqrt(float64(normB))) + 1e-8)
}

// Normalize scales a vector to unit length in place and returns it.
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
