package threads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Thread is a conversation history as exposed to transports.
type Thread struct {
	ID       string           `json:"threadId"`
	Messages []domain.Message `json:"messages"`
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates thread access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.ThreadStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a thread manager over store.
func NewManager(store ports.ThreadStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Create starts an empty thread with a fresh id.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, []domain.Message{})
	})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	m.logger.Debug("Thread created", "thread_id", id)
	return id, nil
}

// Get returns the history of an existing thread.
// Returns domain.ErrThreadNotFound if it does not exist.
func (m *Manager) Get(ctx context.Context, id string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		msgs, err = m.store.Load(ctx, id)
		return err
	})
	return msgs, err
}

// GetOrCreate returns the history of id, creating an empty thread on first reference.
func (m *Manager) GetOrCreate(ctx context.Context, id string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		msgs, err = m.load(ctx, id)
		return err
	})
	return msgs, err
}

// Append adds msgs to the thread, creating it if needed, and returns the full
// history. The read-modify-write runs under the thread lock.
func (m *Manager) Append(ctx context.Context, id string, msgs ...domain.Message) ([]domain.Message, error) {
	var history []domain.Message
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := m.load(ctx, id)
		if err != nil {
			return err
		}
		history = append(current, msgs...)
		if err := m.store.Save(ctx, id, history); err != nil {
			return fmt.Errorf("failed to save thread: %w", err)
		}
		return nil
	})
	return history, err
}

// Delete removes an existing thread.
// Returns domain.ErrThreadNotFound if it does not exist.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, id); err != nil {
			return err
		}
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying thread store.
func (m *Manager) Store() ports.ThreadStore {
	return m.store
}

// load returns the stored history or an empty, persisted one.
func (m *Manager) load(ctx context.Context, id string) ([]domain.Message, error) {
	msgs, err := m.store.Load(ctx, id)
	if err == nil {
		return msgs, nil
	}
	if !errors.Is(err, domain.ErrThreadNotFound) {
		return nil, fmt.Errorf("failed to check thread existence: %w", err)
	}
	if err := m.store.Save(ctx, id, []domain.Message{}); err != nil {
		return nil, fmt.Errorf("failed to initialize thread: %w", err)
	}
	return []domain.Message{}, nil
}

// WithLock executes a function while holding the lock for the thread.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", domain.ErrThreadNotFound)
	}

	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"thread_id", id,
					"error", err,
				)
			}
		}()
	}

	return fn(ctx)
}
