package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores commit records in PostgreSQL.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger opens a pool on dsn and ensures the table exists.
func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createCommitsTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate quote_commits: %w", err)
	}
	return &PostgresLedger{pool: pool}, nil
}

// Lookup returns the commit recorded for conversationID.
func (l *PostgresLedger) Lookup(ctx context.Context, conversationID string) (*CommitRecord, error) {
	var rec CommitRecord
	err := l.pool.QueryRow(ctx, `
		SELECT conversation_id, session_id, quote_id, client_ref, job_type, total_cost, total_with_tax, created_at
		FROM quote_commits WHERE conversation_id = $1`, conversationID).
		Scan(&rec.ConversationID, &rec.SessionID, &rec.QuoteID, &rec.ClientRef, &rec.JobType, &rec.TotalCost, &rec.TotalWithTax, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}
	return &rec, nil
}

// Record inserts rec. A second record for the same conversation is ignored.
func (l *PostgresLedger) Record(ctx context.Context, rec CommitRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO quote_commits (conversation_id, session_id, quote_id, client_ref, job_type, total_cost, total_with_tax, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (conversation_id) DO NOTHING`,
		rec.ConversationID, rec.SessionID, rec.QuoteID, rec.ClientRef, rec.JobType, rec.TotalCost, rec.TotalWithTax, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
