package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quote-orchestrator/internal/backend"
	"quote-orchestrator/internal/metrics"
	"quote-orchestrator/internal/repo"
	"quote-orchestrator/internal/session"
)

// Creator issues the create-quote call.
type Creator interface {
	CreateQuote(ctx context.Context, payload map[string]any) (*backend.QuoteRecord, error)
}

// Ledger remembers which conversations were already committed.
type Ledger interface {
	Lookup(ctx context.Context, conversationID string) (*repo.CommitRecord, error)
	Record(ctx context.Context, rec repo.CommitRecord) error
}

// Receipt describes a committed quote.
type Receipt struct {
	QuoteID  string
	Totals   Totals
	Replayed bool
}

// Gateway performs the single state-mutating backend call of a conversation.
type Gateway struct {
	creator Creator
	ledger  Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewGateway creates a commit gateway. ledger may be nil.
func NewGateway(creator Creator, ledger Ledger, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	if m == nil {
		m = metrics.New("", nil)
	}
	return &Gateway{
		creator: creator,
		ledger:  ledger,
		logger:  logger.With("component", "quote_gateway"),
		metrics: m,
		now:     time.Now,
	}
}

// Commit creates the quote for the conversation held in c. When the ledger already
// holds a commit for that conversation, the recorded quote is returned and no call
// is made. Session ids can be reused by callers, so the ledger is keyed by the
// conversation id instead; a context without one is committed unguarded.
func (g *Gateway) Commit(ctx context.Context, sessionID string, c *session.Context) (*Receipt, error) {
	ledger := g.ledger
	if ledger != nil && c.ConversationID == "" {
		g.logger.Warn("context has no conversation id, committing without ledger", "session_id", sessionID)
		ledger = nil
	}
	if ledger != nil {
		rec, err := ledger.Lookup(ctx, c.ConversationID)
		switch {
		case err == nil:
			g.logger.Info("conversation already committed, replaying receipt", "session_id", sessionID, "conversation_id", c.ConversationID, "quote_id", rec.QuoteID)
			g.metrics.Commits.WithLabelValues("replayed").Inc()
			return &Receipt{
				QuoteID:  rec.QuoteID,
				Totals:   Totals{Cost: rec.TotalCost, WithTax: rec.TotalWithTax},
				Replayed: true,
			}, nil
		case !errors.Is(err, repo.ErrNotFound):
			g.logger.Warn("commit ledger lookup failed", "session_id", sessionID, "error", err)
		}
	}

	totals := ComputeTotals(c)
	created, err := g.creator.CreateQuote(ctx, BuildPayload(c))
	if err != nil {
		g.metrics.Commits.WithLabelValues("failure").Inc()
		g.logger.Error("quote commit failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("commit quote: %w", err)
	}
	if created == nil {
		created = &backend.QuoteRecord{}
	}
	g.metrics.Commits.WithLabelValues("success").Inc()

	receipt := &Receipt{QuoteID: created.ID, Totals: totals}
	if ledger != nil {
		clientRef := c.ClientID
		if clientRef == "" {
			clientRef = ClientLabel(c)
		}
		err := ledger.Record(ctx, repo.CommitRecord{
			ConversationID: c.ConversationID,
			SessionID:      sessionID,
			QuoteID:        created.ID,
			ClientRef:      clientRef,
			JobType:        c.JobType,
			TotalCost:      totals.Cost,
			TotalWithTax:   totals.WithTax,
			CreatedAt:      g.now(),
		})
		if err != nil {
			g.logger.Warn("record commit failed", "session_id", sessionID, "quote_id", created.ID, "error", err)
		}
	}
	g.logger.Info("quote committed", "session_id", sessionID, "quote_id", created.ID, "total_with_tax", totals.WithTax)
	return receipt, nil
}
