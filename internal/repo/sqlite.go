package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLedger stores commit records in a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (creating if needed) the database at path.
func NewSQLiteLedger(ctx context.Context, path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createCommitsTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate quote_commits: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Lookup returns the commit recorded for conversationID.
func (l *SQLiteLedger) Lookup(ctx context.Context, conversationID string) (*CommitRecord, error) {
	var (
		rec       CommitRecord
		createdAt string
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT conversation_id, session_id, quote_id, client_ref, job_type, total_cost, total_with_tax, created_at
		FROM quote_commits WHERE conversation_id = ?`, conversationID).
		Scan(&rec.ConversationID, &rec.SessionID, &rec.QuoteID, &rec.ClientRef, &rec.JobType, &rec.TotalCost, &rec.TotalWithTax, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}

// Record inserts rec. A second record for the same conversation is ignored.
func (l *SQLiteLedger) Record(ctx context.Context, rec CommitRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO quote_commits (conversation_id, session_id, quote_id, client_ref, job_type, total_cost, total_with_tax, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO NOTHING`,
		rec.ConversationID, rec.SessionID, rec.QuoteID, rec.ClientRef, rec.JobType, rec.TotalCost, rec.TotalWithTax, rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
