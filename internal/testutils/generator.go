// Package testutils provides fakes of the driven ports for package tests.
package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/civicchat/orchestra/pkg/ports"
)

// ErrUpstream is the error returned by failing fakes.
var ErrUpstream = errors.New("upstream unavailable")

// FakeGenerator is a scriptable ports.TextGenerator that records every request.
type FakeGenerator struct {
	mu sync.Mutex

	// GenerateFunc answers Generate; when nil Reply is returned.
	GenerateFunc func(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error)
	// ClassifyFunc answers Classify; when nil Route is returned.
	ClassifyFunc func(ctx context.Context, req ports.ClassificationRequest) (string, error)

	Reply string
	Route string

	Completions     []ports.CompletionRequest
	Classifications []ports.ClassificationRequest
}

// NewFakeGenerator returns a generator that always replies with reply and routes to route.
func NewFakeGenerator(reply, route string) *FakeGenerator {
	return &FakeGenerator{Reply: reply, Route: route}
}

// NewFailingGenerator returns a generator whose every call fails with ErrUpstream.
func NewFailingGenerator() *FakeGenerator {
	return &FakeGenerator{
		GenerateFunc: func(context.Context, ports.CompletionRequest) (ports.Completion, error) {
			return ports.Completion{}, ErrUpstream
		},
		ClassifyFunc: func(context.Context, ports.ClassificationRequest) (string, error) {
			return "", ErrUpstream
		},
	}
}

func (f *FakeGenerator) Generate(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	f.mu.Lock()
	f.Completions = append(f.Completions, req)
	fn := f.GenerateFunc
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ports.Completion{}, err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	return ports.Completion{Content: f.Reply, Model: "fake"}, nil
}

func (f *FakeGenerator) Classify(ctx context.Context, req ports.ClassificationRequest) (string, error) {
	f.mu.Lock()
	f.Classifications = append(f.Classifications, req)
	fn := f.ClassifyFunc
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	return f.Route, nil
}

// CompletionCount returns how many Generate calls were made.
func (f *FakeGenerator) CompletionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Completions)
}

// LastCompletion returns the most recent Generate request.
func (f *FakeGenerator) LastCompletion() (ports.CompletionRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Completions) == 0 {
		return ports.CompletionRequest{}, false
	}
	return f.Completions[len(f.Completions)-1], true
}

// LastClassification returns the most recent Classify request.
func (f *FakeGenerator) LastClassification() (ports.ClassificationRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Classifications) == 0 {
		return ports.ClassificationRequest{}, false
	}
	return f.Classifications[len(f.Classifications)-1], true
}

// FakeDetector is a ports.LanguageDetector returning a fixed answer.
type FakeDetector struct {
	Lang string
	Err  error
}

func (d FakeDetector) Detect(context.Context, string) (string, error) {
	return d.Lang, d.Err
}

// FakeRetriever is a ports.Retriever returning fixed passages.
type FakeRetriever struct {
	Passages []ports.Passage
	Err      error
}

func (r FakeRetriever) Search(_ context.Context, _ string, k int) ([]ports.Passage, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Passages[:min(k, len(r.Passages))], nil
}
