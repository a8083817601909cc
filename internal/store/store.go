// Package store keeps an append-only journal of completed operations.
// It is an audit trail: nothing reads it back to answer a request.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/ods/internal/domain"
)

//go:embed schema.sql
var schema string

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry and returns it
func (s *Store) Record(kind, input, outcome, detail string) (*domain.JournalEntry, error) {
	entry := &domain.JournalEntry{
		ID:        uuid.New().String(),
		Kind:      kind,
		Input:     input,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO journal (id, kind, input, outcome, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, entry.Kind, entry.Input, entry.Outcome, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}

	return entry, nil
}

// List returns recent entries, newest first. An empty kind matches all.
func (s *Store) List(kind string, limit, offset int) ([]domain.JournalEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, input, outcome, detail, created_at
		FROM journal
		WHERE ? = '' OR kind = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, kind, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Input, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
