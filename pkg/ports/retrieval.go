package ports

import "context"

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Passage is a retrieved knowledge snippet.
type Passage struct {
	ID      string
	Title   string
	Content string
	Score   float64
}

// Retriever searches a knowledge base for passages relevant to query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
}
