package knowledge_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/civicchat/orchestra/pkg/adapters/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps texts onto a fixed vocabulary so similarity is predictable.
type keywordEmbedder struct {
	vocab []string
	err   error
}

func (e keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(e.vocab))
		lower := strings.ToLower(t)
		for j, w := range e.vocab {
			v[j] = float32(strings.Count(lower, w))
		}
		out[i] = v
	}
	return out, nil
}

var fsys = fstest.MapFS{
	"housing.md":        {Data: []byte("# Rent Control\n\nRents may rise at most 3% per year.\n\nTenants can appeal to the housing board.")},
	"transit/bus.html":  {Data: []byte("<html><body><h1>Bus Service</h1><p>Night buses run every 30 minutes.</p></body></html>")},
	"notes.txt":         {Data: []byte("Recycling is collected on Mondays.")},
	"image.png":         {Data: []byte{0x89, 0x50}},
	".hidden/secret.md": {Data: []byte("# Secret")},
}

func TestLoadFS(t *testing.T) {
	docs, err := knowledge.LoadFS(fsys)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	byID := map[string]knowledge.Document{}
	for _, d := range docs {
		byID[d.ID] = d
	}
	assert.Equal(t, "Rent Control", byID["housing.md"].Title)
	assert.Equal(t, "notes", byID["notes.txt"].Title)

	bus := byID["transit/bus.html"]
	assert.Equal(t, "Bus Service", bus.Title)
	assert.Contains(t, bus.Content, "# Bus Service")
	assert.NotContains(t, bus.Content, "<p>")
}

func TestIndex_Search(t *testing.T) {
	docs, err := knowledge.LoadFS(fsys)
	require.NoError(t, err)

	emb := keywordEmbedder{vocab: []string{"rent", "bus", "recycl", "tenant"}}
	ix, err := knowledge.NewIndex(context.Background(), emb, docs, knowledge.WithChunkSize(40))
	require.NoError(t, err)
	assert.Greater(t, ix.Len(), 3, "small chunks split documents")

	got, err := ix.Search(context.Background(), "When do night buses run?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Bus Service", got[0].Title)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)

	got, err = ix.Search(context.Background(), "rent increase for tenants", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Rent Control", got[0].Title)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	got, err = ix.Search(context.Background(), "parking", 3)
	require.NoError(t, err)
	assert.Empty(t, got, "unrelated queries match nothing")

	_, err = ix.Search(context.Background(), "", 3)
	assert.ErrorIs(t, err, knowledge.ErrEmptyQuery)
}

func TestNewIndex_EmbedFailure(t *testing.T) {
	docs, err := knowledge.LoadFS(fsys)
	require.NoError(t, err)

	_, err = knowledge.NewIndex(context.Background(), keywordEmbedder{err: errors.New("quota")}, docs)
	assert.ErrorContains(t, err, "quota")
}
