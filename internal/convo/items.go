package convo

import (
	"context"

	"quote-orchestrator/internal/nlu"
	"quote-orchestrator/internal/quote"
	"quote-orchestrator/internal/session"
	"quote-orchestrator/internal/slots"
)

type categoryStates struct {
	confirm session.State
	capture session.State
}

var categoryFlow = map[session.Category]categoryStates{
	session.CategoryMaterials: {session.StateCaptureMaterialsConfirm, session.StateCaptureMaterials},
	session.CategoryEquipment: {session.StateCaptureEquipmentConfirm, session.StateCaptureEquipment},
	session.CategoryExtras:    {session.StateCaptureExtrasConfirm, session.StateCaptureExtras},
}

// nextCategory returns the category offered after cat; false after extras.
func nextCategory(cat session.Category) (session.Category, bool) {
	for i, c := range session.Categories {
		if c == cat && i+1 < len(session.Categories) {
			return session.Categories[i+1], true
		}
	}
	return "", false
}

func (e *Engine) askCategory(ctx context.Context, s *session.Session, cat session.Category) (Reply, error) {
	return e.ask(ctx, s, categoryFlow[cat].confirm, "Preguntá si quiere agregar "+categoryNames[cat]+".", msgCategoryConfirm(cat))
}

// advance leaves cat: the next category's question, or the summary after extras.
func (e *Engine) advance(ctx context.Context, s *session.Session, cat session.Category) (Reply, error) {
	if next, ok := nextCategory(cat); ok {
		return e.askCategory(ctx, s, next)
	}
	return e.summarize(ctx, s), nil
}

func categoryConfirm(cat session.Category) handlerFunc {
	return func(e *Engine, ctx context.Context, s *session.Session, msg string) (Reply, error) {
		switch e.yesNo(ctx, msg) {
		case nlu.Yes:
			s.Context.StartCategory(cat)
			return e.ask(ctx, s, categoryFlow[cat].capture, "Pedí el primer ítem con su monto.", msgAskItem(cat))
		case nlu.No:
			return e.advance(ctx, s, cat)
		}
		return e.ask(ctx, s, s.State, "Pedí que responda sí o no.", msgCategoryConfirmRetry(cat))
	}
}

func categoryItems(cat session.Category) handlerFunc {
	return func(e *Engine, ctx context.Context, s *session.Session, msg string) (Reply, error) {
		if slots.IsFinish(msg) {
			if len(s.Context.Items(cat)) == 0 {
				return e.ask(ctx, s, s.State, "Pedí al menos un ítem.", msgNeedOneItem(cat))
			}
			return e.advance(ctx, s, cat)
		}

		item, ok := slots.ParseItemLine(msg)
		if !ok && e.nlu.Enabled() {
			item, ok = e.nlu.ExtractItem(ctx, msg)
		}
		if !ok {
			return e.ask(ctx, s, s.State, "Explicá cómo escribir un ítem con su monto.", msgItemRetry(cat))
		}
		s.Context.AddItem(cat, item)
		return Reply{Text: msgItemAdded(cat, item)}, nil
	}
}

// summarize recomputes totals on every entry and waits for confirmation.
func (e *Engine) summarize(ctx context.Context, s *session.Session) Reply {
	c := s.Context
	s.State = session.StateSummary
	c.Approved = false
	c.Status = quote.StatusPending
	totals := quote.ComputeTotals(c)
	c.TotalCost = totals.Cost
	c.TotalWithTax = totals.WithTax

	summary := e.nlu.Render(ctx, "Presentá este resumen de cotización de forma clara, manteniendo todos los montos exactos.", summaryText(c))
	s.State = session.StateConfirmation
	return Reply{
		Text:                 summary + "\n\n" + msgConfirmPrompt,
		AwaitingConfirmation: true,
	}
}
