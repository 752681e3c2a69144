// Package sqlite persists conversation threads in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicchat/orchestra/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements ports.ThreadStore using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens dsn and applies the schema.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (thread_id, seq),
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the messages of id in a single transaction.
func (s *Store) Save(ctx context.Context, id string, messages []domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO threads (thread_id, updated_at) VALUES (?, CURRENT_TIMESTAMP)
		 ON CONFLICT(thread_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, id); err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (thread_id, seq, role, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range messages {
		if _, err := stmt.ExecContext(ctx, id, i, string(m.Role), m.Content); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Load retrieves the messages of id in order.
func (s *Store) Load(ctx context.Context, id string) ([]domain.Message, error) {
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT thread_id FROM threads WHERE thread_id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE thread_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, domain.Message{Role: domain.Role(role), Content: content})
	}
	return messages, rows.Err()
}

// Delete removes the thread and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE thread_id = ?`, id)
	return err
}

// List returns the thread ids, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM threads ORDER BY updated_at DESC, thread_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
