package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"quote-orchestrator/internal/metrics"
	"quote-orchestrator/internal/session"
)

// Request is one inbound operator message.
type Request struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Response is the reply to one message.
type Response struct {
	SessionID            string `json:"sessionId"`
	State                string `json:"state"`
	ReplyText            string `json:"replyText"`
	EndSession           bool   `json:"endSession"`
	AwaitingConfirmation bool   `json:"awaitingConfirmation,omitempty"`
}

// Service fetches or creates the session, runs the engine and stores the result.
type Service struct {
	store   session.Store
	engine  *Engine
	locks   *sessionLocks
	metrics *metrics.Metrics
	logger  *slog.Logger
	newID   func() string
}

// NewService wires the session store to the engine.
func NewService(store session.Store, engine *Engine, m *metrics.Metrics, logger *slog.Logger) *Service {
	if m == nil {
		m = metrics.New("", nil)
	}
	return &Service{
		store:   store,
		engine:  engine,
		locks:   newSessionLocks(),
		metrics: m,
		logger:  logger.With("component", "convo_service"),
		newID:   uuid.NewString,
	}
}

// HandleMessage runs one turn. A blank session id starts a new conversation
// under a generated id.
func (s *Service) HandleMessage(ctx context.Context, req Request) (*Response, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = s.newID()
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.GetOrCreate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	reply := s.engine.Handle(ctx, sess, req.Message)

	if reply.EndSession {
		if err := s.store.Remove(ctx, id); err != nil {
			s.logger.Warn("remove finished session failed", "session_id", id, "error", err)
		}
	} else if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	s.observeStore()

	return &Response{
		SessionID:            id,
		State:                string(sess.State),
		ReplyText:            reply.Text,
		EndSession:           reply.EndSession,
		AwaitingConfirmation: reply.AwaitingConfirmation,
	}, nil
}

func (s *Service) observeStore() {
	if counter, ok := s.store.(interface{ Len() int }); ok {
		s.metrics.ActiveSessions.Set(float64(counter.Len()))
	}
}
