// Package repo persists the outcome of quote commits so a conversation is never
// committed twice.
package repo

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no commit is recorded for a conversation.
var ErrNotFound = errors.New("commit record not found")

// CommitRecord is the durable trace of one successful quote commit.
type CommitRecord struct {
	ConversationID string
	SessionID      string
	QuoteID        string
	ClientRef      string
	JobType        string
	TotalCost      float64
	TotalWithTax   float64
	CreatedAt      time.Time
}

const createCommitsTableSQL = `
CREATE TABLE IF NOT EXISTS quote_commits (
	conversation_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	quote_id TEXT NOT NULL,
	client_ref TEXT NOT NULL DEFAULT '',
	job_type TEXT NOT NULL DEFAULT '',
	total_cost DOUBLE PRECISION NOT NULL,
	total_with_tax DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`
