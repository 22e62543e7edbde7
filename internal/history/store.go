// Package history persists finished question/answer turns to SQLite so a
// session survives process restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	tools_used TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id, created_at);
`

// Turn is one persisted question/answer exchange.
type Turn struct {
	ID        string
	SessionID string
	Question  string
	Answer    string
	ToolsUsed []string
	CreatedAt time.Time
}

// Store is a SQLite-backed transcript store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and runs migrations.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends one finished exchange to the transcript.
func (s *Store) Record(ctx context.Context, sessionID, question, answer string, toolsUsed []string) error {
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	tools, err := json.Marshal(toolsUsed)
	if err != nil {
		return fmt.Errorf("failed to encode tools_used: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (id, session_id, question, answer, tools_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, question, answer, string(tools), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}
	return nil
}

// Recent returns up to limit turns for a session, oldest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, question, answer, tools_used, created_at
		 FROM transcripts
		 WHERE session_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var tools string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer, &tools, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		if err := json.Unmarshal([]byte(tools), &t.ToolsUsed); err != nil {
			t.ToolsUsed = nil
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Restore rebuilds a session's in-memory history from the transcript.
func (s *Store) Restore(ctx context.Context, session *models.Session, limit int) error {
	turns, err := s.Recent(ctx, session.ID, limit)
	if err != nil {
		return err
	}
	for _, t := range turns {
		session.Append(
			models.UserMessage(t.Question),
			models.AssistantMessage(t.Answer),
		)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
