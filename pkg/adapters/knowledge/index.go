package knowledge

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/pkg/ports"
)

const (
	// DefaultChunkSize is the target passage length in bytes.
	DefaultChunkSize = 1200
	embedBatch       = 64
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("empty query")

type entry struct {
	passage ports.Passage
	vector  []float32
	norm    float64
}

// Index holds embedded passages and answers cosine similarity queries.
// It is immutable after construction and safe for concurrent use.
type Index struct {
	embedder  ports.Embedder
	entries   []entry
	chunkSize int
	logger    *slog.Logger
}

var _ ports.Retriever = (*Index)(nil)

// Option configures the Index.
type Option func(*Index)

// WithChunkSize sets the target passage length.
func WithChunkSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// NewIndex chunks and embeds docs.
func NewIndex(ctx context.Context, embedder ports.Embedder, docs []Document, opts ...Option) (*Index, error) {
	ix := &Index{
		embedder:  embedder,
		chunkSize: DefaultChunkSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}

	var passages []ports.Passage
	for _, d := range docs {
		for i, c := range chunkText(d.Content, ix.chunkSize) {
			passages = append(passages, ports.Passage{
				ID:      fmt.Sprintf("%s#%d", d.ID, i),
				Title:   d.Title,
				Content: c,
			})
		}
	}

	for batch := range slices.Chunk(passages, embedBatch) {
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Content
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed knowledge: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("failed to embed knowledge: got %d vectors for %d passages", len(vectors), len(batch))
		}
		for i, p := range batch {
			ix.entries = append(ix.entries, entry{passage: p, vector: vectors[i], norm: norm(vectors[i])})
		}
	}

	ix.logger.Info("Knowledge index built", "documents", len(docs), "passages", len(ix.entries))
	return ix, nil
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search returns up to k passages ranked by cosine similarity to query.
// Passages with a non-positive score are dropped.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]ports.Passage, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("failed to embed query: got %d vectors", len(vectors))
	}
	q := vectors[0]
	qn := norm(q)

	scored := make([]ports.Passage, 0, len(ix.entries))
	for _, e := range ix.entries {
		s := cosine(q, qn, e.vector, e.norm)
		if s <= 0 {
			continue
		}
		p := e.passage
		p.Score = s
		scored = append(scored, p)
	}
	slices.SortStableFunc(scored, func(a, b ports.Passage) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scored[:min(k, len(scored))], nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
