// Package sessionstore persists terminal session summaries in SQLite. One
// row per completed ingestion run; the vector data itself lives in Milvus
// and is linked through collection_name.
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    participant_name TEXT NOT NULL,
    display_name TEXT NOT NULL,
    owner_id TEXT,
    message_count INTEGER NOT NULL,
    collection_name TEXT NOT NULL,
    detected_languages TEXT,
    is_active BOOLEAN DEFAULT TRUE,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
`

// Summary is the terminal record of one ingestion run.
type Summary struct {
	SessionID         string
	ParticipantName   string
	DisplayName       string
	OwnerID           string
	MessageCount      int
	CollectionName    string
	DetectedLanguages []string
}

// Store persists session summaries.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and ensures the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateSession inserts the summary row. DisplayName falls back to the
// participant name when empty.
func (s *Store) CreateSession(ctx context.Context, summary Summary) error {
	display := summary.DisplayName
	if display == "" {
		display = summary.ParticipantName
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, participant_name, display_name, owner_id, message_count, collection_name, detected_languages, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, ?)
	`, summary.SessionID, summary.ParticipantName, display, summary.OwnerID,
		summary.MessageCount, summary.CollectionName,
		strings.Join(summary.DetectedLanguages, ","), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// GetSession returns the summary for a session id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Summary, error) {
	var summary Summary
	var languages string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, participant_name, display_name, owner_id, message_count, collection_name, detected_languages
		FROM sessions WHERE id = ?
	`, sessionID).Scan(&summary.SessionID, &summary.ParticipantName, &summary.DisplayName,
		&summary.OwnerID, &summary.MessageCount, &summary.CollectionName, &languages)
	if err != nil {
		return nil, err
	}

	if languages != "" {
		summary.DetectedLanguages = strings.Split(languages, ",")
	}

	return &summary, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
