// Package middleware decorates a ports.ThreadStore with encryption at rest and
// PII redaction.
package middleware

import "github.com/civicchat/orchestra/pkg/ports"

// Middleware allows wrapping a ThreadStore to add behavior.
type Middleware func(ports.ThreadStore) ports.ThreadStore

// Chain wraps store with mws. The first middleware is the closest to store, so
// the last one sees a Save first.
func Chain(store ports.ThreadStore, mws ...Middleware) ports.ThreadStore {
	for _, mw := range mws {
		store = mw(store)
	}
	return store
}
