// Package convo drives the quote dialogue: a state machine over the session
// context, backed by deterministic parsers with the language model as fallback.
package convo

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"quote-orchestrator/internal/backend"
	"quote-orchestrator/internal/metrics"
	"quote-orchestrator/internal/nlu"
	"quote-orchestrator/internal/quote"
	"quote-orchestrator/internal/session"
	"quote-orchestrator/internal/slots"
)

// Directory is the client lookup side of the backend.
type Directory interface {
	SearchClientsByName(ctx context.Context, name string) ([]backend.ClientRecord, error)
	GetClientByID(ctx context.Context, id string) (*backend.ClientRecord, error)
	Branches(ctx context.Context, rec backend.ClientRecord) ([]backend.Branch, error)
}

// Committer performs the final create-quote call.
type Committer interface {
	Commit(ctx context.Context, sessionID string, c *session.Context) (*quote.Receipt, error)
}

// Interpreter is the advisory language-model fallback. Implementations never fail;
// they report "unresolved" instead.
type Interpreter interface {
	Enabled() bool
	ClassifyClientType(ctx context.Context, message string) slots.ClientType
	ClassifyYesNo(ctx context.Context, message string) nlu.YesNo
	NormalizeOption(ctx context.Context, message string, catalog *slots.Catalog) (string, bool)
	ExtractItem(ctx context.Context, message string) (slots.Item, bool)
	ExtractClientName(ctx context.Context, message string) (string, bool)
	Render(ctx context.Context, instruction, fallback string) string
}

// Reply is the outcome of one turn.
type Reply struct {
	Text                 string
	EndSession           bool
	AwaitingConfirmation bool
}

// Options tune the engine.
type Options struct {
	// Humanize routes every prompt through the model; the summary always is.
	Humanize bool
	Catalog  *slots.Catalog
}

// Engine evaluates one message against one session.
type Engine struct {
	directory Directory
	committer Committer
	nlu       Interpreter
	catalog   *slots.Catalog
	humanize  bool
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine creates a dialogue engine.
func NewEngine(directory Directory, committer Committer, interp Interpreter, m *metrics.Metrics, logger *slog.Logger, opts Options) *Engine {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = slots.NewCatalog(slots.DefaultJobTypes...)
	}
	if m == nil {
		m = metrics.New("", nil)
	}
	if interp == nil {
		interp = nlu.NewAdapter(nil, logger)
	}
	return &Engine{
		directory: directory,
		committer: committer,
		nlu:       interp,
		catalog:   catalog,
		humanize:  opts.Humanize,
		metrics:   m,
		logger:    logger.With("component", "convo"),
	}
}

type handlerFunc func(e *Engine, ctx context.Context, s *session.Session, msg string) (Reply, error)

var handlers = map[session.State]handlerFunc{
	session.StateStart:                       (*Engine).handleStart,
	session.StateCaptureClientType:           (*Engine).handleClientType,
	session.StateCaptureClientExistingName:   (*Engine).handleClientName,
	session.StateCaptureClientDisambiguation: (*Engine).handleDisambiguation,
	session.StateCaptureClientManual:         (*Engine).handleManualName,
	session.StateCaptureAddressManual:        (*Engine).handleManualAddress,
	session.StateCaptureBranch:               (*Engine).handleBranch,
	session.StateCaptureJobType:              (*Engine).handleJobType,
	session.StateCaptureLaborCost:            (*Engine).handleLaborCost,
	session.StateCaptureMaterialsConfirm:     categoryConfirm(session.CategoryMaterials),
	session.StateCaptureMaterials:            categoryItems(session.CategoryMaterials),
	session.StateCaptureEquipmentConfirm:     categoryConfirm(session.CategoryEquipment),
	session.StateCaptureEquipment:            categoryItems(session.CategoryEquipment),
	session.StateCaptureExtrasConfirm:        categoryConfirm(session.CategoryExtras),
	session.StateCaptureExtras:               categoryItems(session.CategoryExtras),
	session.StateSummary:                     (*Engine).handleSummary,
	session.StateConfirmation:                (*Engine).handleConfirmation,
	session.StateSuccess:                     (*Engine).handleTerminal,
	session.StateError:                       (*Engine).handleTerminal,
}

// Handle runs one turn. Any handler error or panic moves the session to ERROR
// and ends it.
func (e *Engine) Handle(ctx context.Context, s *session.Session, message string) (reply Reply) {
	if s.Context == nil {
		s.Context = &session.Context{}
	}
	from := s.State

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dialogue panic", "session_id", s.ID, "state", from, "panic", r, "stack", string(debug.Stack()))
			reply = e.fail(s)
		}
		outcome := "ok"
		if s.State == session.StateError {
			outcome = "error"
		}
		e.metrics.Turns.WithLabelValues(string(s.State), outcome).Inc()
	}()

	h, ok := handlers[s.State]
	if !ok {
		e.logger.Error("unknown dialogue state", "session_id", s.ID, "state", s.State)
		return e.fail(s)
	}
	out, err := h(e, ctx, s, message)
	if err != nil {
		e.logger.Error("dialogue turn failed", "session_id", s.ID, "state", from, "error", err)
		return e.fail(s)
	}
	e.logger.Debug("dialogue turn", "session_id", s.ID, "from", from, "to", s.State)
	return out
}

func (e *Engine) fail(s *session.Session) Reply {
	e.metrics.Errors.WithLabelValues("convo").Inc()
	s.State = session.StateError
	return Reply{Text: msgGenericError, EndSession: true}
}

// say returns fallback, reworded by the model when humanized prompts are on.
func (e *Engine) say(ctx context.Context, instruction, fallback string) string {
	if !e.humanize {
		return fallback
	}
	return e.nlu.Render(ctx, instruction, fallback)
}

func (e *Engine) ask(ctx context.Context, s *session.Session, next session.State, instruction, fallback string) (Reply, error) {
	s.State = next
	return Reply{Text: e.say(ctx, instruction, fallback)}, nil
}

func (e *Engine) handleStart(ctx context.Context, s *session.Session, _ string) (Reply, error) {
	return e.ask(ctx, s, session.StateCaptureClientType, "Saludá y preguntá si el cliente es existente o manual.", msgOpening)
}

func (e *Engine) handleTerminal(ctx context.Context, s *session.Session, _ string) (Reply, error) {
	if s.State == session.StateSuccess {
		text := msgAlreadyDone
		if s.Context.QuoteID != "" {
			text = msgSuccess(s.Context.QuoteID, quote.Totals{Cost: s.Context.TotalCost, WithTax: s.Context.TotalWithTax})
		}
		return Reply{Text: text, EndSession: true}, nil
	}
	return Reply{Text: msgGenericError, EndSession: true}, nil
}

func (e *Engine) handleJobType(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	job, ok := e.catalog.Resolve(msg)
	if !ok && e.nlu.Enabled() {
		job, ok = e.nlu.NormalizeOption(ctx, msg, e.catalog)
	}
	if !ok {
		return e.ask(ctx, s, s.State, "Pedí que elija un tipo de trabajo de la lista.", msgJobTypeRetry(e.catalog.Options()))
	}
	s.Context.JobType = job
	return e.ask(ctx, s, session.StateCaptureLaborCost, "Preguntá el costo de la mano de obra.", msgAskLabor)
}

func (e *Engine) handleLaborCost(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	c := s.Context
	if c.ConfirmZeroLabor {
		switch e.yesNo(ctx, msg) {
		case nlu.Yes:
			c.ConfirmZeroLabor = false
			return e.askCategory(ctx, s, session.CategoryMaterials)
		case nlu.No:
			c.ConfirmZeroLabor = false
			c.LaborCost = nil
			return e.ask(ctx, s, s.State, "Pedí de nuevo el monto de la mano de obra.", msgAskLabor)
		}
		if v, ok := slots.ParseAmount(msg); ok && v > 0 {
			c.ConfirmZeroLabor = false
			c.LaborCost = &v
			return e.askCategory(ctx, s, session.CategoryMaterials)
		}
		return e.ask(ctx, s, s.State, "Pedí que confirme si la mano de obra es cero.", msgConfirmZeroRetry)
	}

	v, ok := slots.ParseAmount(msg)
	if !ok || v < 0 {
		return e.ask(ctx, s, s.State, "Pedí de nuevo el monto de la mano de obra.", msgLaborRetry)
	}
	c.LaborCost = &v
	if v == 0 {
		c.ConfirmZeroLabor = true
		return e.ask(ctx, s, s.State, "Pedí que confirme si la mano de obra es cero.", msgConfirmZeroLabor)
	}
	return e.askCategory(ctx, s, session.CategoryMaterials)
}

// yesNo classifies deterministically first and asks the model only when that fails.
func (e *Engine) yesNo(ctx context.Context, msg string) nlu.YesNo {
	switch {
	case slots.IsAffirmative(msg):
		return nlu.Yes
	case slots.IsNegative(msg):
		return nlu.No
	case slots.HasNumber(msg) || !e.nlu.Enabled():
		return nlu.Unresolved
	}
	return e.nlu.ClassifyYesNo(ctx, msg)
}

func (e *Engine) handleSummary(ctx context.Context, s *session.Session, _ string) (Reply, error) {
	return e.summarize(ctx, s), nil
}

func (e *Engine) handleConfirmation(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	if !slots.IsConfirmation(msg) && !slots.IsAffirmative(msg) {
		return Reply{
			Text:                 e.say(ctx, "Pedí que confirme la cotización.", msgConfirmPrompt),
			AwaitingConfirmation: true,
		}, nil
	}
	if e.committer == nil {
		return Reply{}, fmt.Errorf("no quote committer configured")
	}

	receipt, err := e.committer.Commit(ctx, s.ID, s.Context)
	if err != nil {
		e.logger.Error("commit failed, keeping session for retry", "session_id", s.ID, "error", err)
		return Reply{
			Text:                 msgCommitFailed + " " + msgConfirmPrompt,
			AwaitingConfirmation: true,
		}, nil
	}
	s.Context.QuoteID = receipt.QuoteID
	s.State = session.StateSuccess
	return Reply{Text: msgSuccess(receipt.QuoteID, receipt.Totals), EndSession: true}, nil
}
