package ports

import (
	"context"

	"github.com/civicchat/orchestra/pkg/domain"
)

// ThreadStore persists conversation threads as ordered message lists keyed by id.
// Implementations need not serialize concurrent writers; threads.Manager does.
type ThreadStore interface {
	// Save replaces the messages stored for id, creating the thread if needed.
	Save(ctx context.Context, id string, messages []domain.Message) error

	// Load retrieves the messages of a thread.
	// Returns domain.ErrThreadNotFound if the thread does not exist.
	Load(ctx context.Context, id string) ([]domain.Message, error)

	// Delete removes a thread. Deleting a missing thread is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of the stored threads.
	List(ctx context.Context) ([]string, error)
}
