package convo

import (
	"context"
	"errors"
	"strings"

	"quote-orchestrator/internal/backend"
	"quote-orchestrator/internal/session"
	"quote-orchestrator/internal/slots"
	"quote-orchestrator/internal/textnorm"
)

var (
	manualKeywords    = []string{"manual", "cargar manual", "cargar a mano", "a mano"}
	newSearchKeywords = []string{"otro", "otra", "buscar", "buscar otro", "ninguno", "ninguna"}
)

func (e *Engine) handleClientType(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	if id, ok := slots.ParseObjectID(msg); ok {
		s.Context.ClientMode = session.ClientModeExisting
		return e.lookupClientByID(ctx, s, id)
	}

	kind := slots.ClassifyClientType(msg)
	if kind == slots.ClientUnknown && e.nlu.Enabled() {
		kind = e.nlu.ClassifyClientType(ctx, msg)
	}
	switch kind {
	case slots.ClientExisting:
		s.Context.ClientMode = session.ClientModeExisting
		return e.ask(ctx, s, session.StateCaptureClientExistingName, "Preguntá el nombre del cliente a buscar.", msgAskClientName)
	case slots.ClientManual:
		return e.switchToManual(ctx, s)
	}
	return e.ask(ctx, s, s.State, "Pedí que aclare si el cliente es existente o manual.", msgClientTypeRetry)
}

func (e *Engine) handleClientName(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	name := strings.TrimSpace(msg)
	if name == "" {
		return e.ask(ctx, s, s.State, "Pedí el nombre del cliente.", msgClientNameBlank)
	}
	if slots.IsKeyword(name, manualKeywords...) {
		return e.switchToManual(ctx, s)
	}
	if id, ok := slots.ParseObjectID(name); ok {
		return e.lookupClientByID(ctx, s, id)
	}

	query := name
	if e.nlu.Enabled() {
		if extracted, ok := e.nlu.ExtractClientName(ctx, name); ok {
			query = extracted
		}
	}
	records, err := e.directory.SearchClientsByName(ctx, query)
	if err == nil && len(records) == 0 && query != name {
		records, err = e.directory.SearchClientsByName(ctx, name)
	}
	if err != nil {
		e.logger.Warn("client search unavailable", "session_id", s.ID, "error", err)
		return e.ask(ctx, s, s.State, "Avisá que no se pudo verificar el cliente.", msgClientUnavailable)
	}

	switch len(records) {
	case 0:
		return e.ask(ctx, s, s.State, "Avisá que no se encontró el cliente.", msgClientNotFound(name))
	case 1:
		return e.resolveClient(ctx, s, records[0])
	}

	matches := make([]session.ClientMatch, len(records))
	for i, rec := range records {
		matches[i] = session.ClientMatch{ID: rec.ID, DisplayName: rec.DisplayName()}
	}
	s.Context.Matches = matches
	s.State = session.StateCaptureClientDisambiguation
	// The numbered list is never reworded so indexes stay aligned.
	return Reply{Text: msgDisambiguation(matches)}, nil
}

func (e *Engine) handleDisambiguation(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	c := s.Context
	switch {
	case slots.IsKeyword(msg, manualKeywords...):
		return e.switchToManual(ctx, s)
	case slots.IsKeyword(msg, newSearchKeywords...):
		c.Matches = nil
		return e.ask(ctx, s, session.StateCaptureClientExistingName, "Preguntá el nombre del cliente a buscar.", msgAskClientName)
	}

	n, ok := slots.ParseSelection(msg, len(c.Matches))
	if !ok {
		return Reply{Text: msgDisambiguationRetry(c.Matches)}, nil
	}
	match := c.Matches[n-1]
	rec, err := e.directory.GetClientByID(ctx, match.ID)
	if err != nil {
		e.logger.Warn("selected client lookup failed, continuing with search data", "session_id", s.ID, "client_id", match.ID, "error", err)
		rec = &backend.ClientRecord{ID: match.ID, Name: match.DisplayName}
	}
	if rec.Name == "" {
		rec.Name = match.DisplayName
	}
	return e.resolveClient(ctx, s, *rec)
}

func (e *Engine) lookupClientByID(ctx context.Context, s *session.Session, id string) (Reply, error) {
	rec, err := e.directory.GetClientByID(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		return e.ask(ctx, s, session.StateCaptureClientExistingName, "Avisá que no existe un cliente con ese ID.", msgClientIDNotFound)
	}
	if err != nil {
		e.logger.Warn("client lookup unavailable", "session_id", s.ID, "client_id", id, "error", err)
		return e.ask(ctx, s, session.StateCaptureClientExistingName, "Avisá que no se pudo verificar el cliente.", msgClientUnavailable)
	}
	return e.resolveClient(ctx, s, *rec)
}

// resolveClient stores the chosen client and loads its branches.
func (e *Engine) resolveClient(ctx context.Context, s *session.Session, rec backend.ClientRecord) (Reply, error) {
	c := s.Context
	c.ClientMode = session.ClientModeExisting
	c.ClientID = rec.ID
	c.ClientName = rec.DisplayName()
	c.Matches = nil
	c.Manual = nil
	c.BranchID = ""
	c.BranchName = ""
	c.Branches = e.loadBranches(ctx, s, rec)
	s.State = session.StateCaptureBranch

	if len(c.Branches) == 0 {
		return Reply{Text: e.say(ctx, "Avisá que el cliente no tiene sucursales disponibles.", msgNoBranches(c.ClientName))}, nil
	}
	return Reply{Text: msgAskBranch(c.ClientName, c.Branches)}, nil
}

func (e *Engine) loadBranches(ctx context.Context, s *session.Session, rec backend.ClientRecord) []session.Branch {
	branches, err := e.directory.Branches(ctx, rec)
	if err != nil {
		e.logger.Warn("branch lookup failed", "session_id", s.ID, "client_id", rec.ID, "error", err)
		return nil
	}
	out := make([]session.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, session.Branch{ID: b.ID, Name: b.Name})
	}
	return out
}

func (e *Engine) handleBranch(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	c := s.Context
	if slots.IsKeyword(msg, manualKeywords...) {
		return e.switchToManual(ctx, s)
	}
	if len(c.Branches) == 0 {
		if rec, err := e.directory.GetClientByID(ctx, c.ClientID); err == nil {
			c.Branches = e.loadBranches(ctx, s, *rec)
		} else {
			e.logger.Warn("client refetch failed", "session_id", s.ID, "client_id", c.ClientID, "error", err)
		}
		if len(c.Branches) == 0 {
			return Reply{Text: e.say(ctx, "Avisá que el cliente no tiene sucursales disponibles.", msgNoBranches(c.ClientName))}, nil
		}
	}

	branch, ok := matchBranch(msg, c.Branches)
	if !ok {
		return Reply{Text: msgBranchRetry(c.Branches)}, nil
	}
	c.BranchID = branch.ID
	c.BranchName = branch.Name
	return e.ask(ctx, s, session.StateCaptureJobType, "Preguntá el tipo de trabajo mostrando las opciones.", msgAskJobType(e.catalog.Options()))
}

// matchBranch accepts a 1-based index or a name contained in (or containing) a
// branch name. An exact name wins over a partial one.
func matchBranch(msg string, branches []session.Branch) (session.Branch, bool) {
	if n, ok := slots.ParseSelection(msg, len(branches)); ok {
		return branches[n-1], true
	}
	needle := textnorm.Normalize(msg)
	if needle == "" {
		return session.Branch{}, false
	}
	var (
		partial session.Branch
		found   bool
	)
	for _, b := range branches {
		name := textnorm.Normalize(b.Name)
		if name == "" {
			continue
		}
		if name == needle {
			return b, true
		}
		if !found && (strings.Contains(name, needle) || strings.Contains(needle, name)) {
			partial, found = b, true
		}
	}
	return partial, found
}

func (e *Engine) switchToManual(ctx context.Context, s *session.Session) (Reply, error) {
	s.Context.ResetClient()
	s.Context.ClientMode = session.ClientModeManual
	return e.ask(ctx, s, session.StateCaptureClientManual, "Preguntá el nombre del cliente nuevo.", msgAskManualName)
}

func (e *Engine) handleManualName(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	name := strings.TrimSpace(msg)
	if name == "" {
		return e.ask(ctx, s, s.State, "Pedí el nombre del cliente.", msgManualNameBlank)
	}
	s.Context.ClientMode = session.ClientModeManual
	s.Context.Manual = &session.ManualClient{Name: name}
	return e.ask(ctx, s, session.StateCaptureAddressManual, "Preguntá la dirección del trabajo.", msgAskManualAddress)
}

func (e *Engine) handleManualAddress(ctx context.Context, s *session.Session, msg string) (Reply, error) {
	addr := strings.TrimSpace(msg)
	if addr == "" {
		return e.ask(ctx, s, s.State, "Pedí la dirección del trabajo.", msgManualAddressBlank)
	}
	if s.Context.Manual == nil {
		s.Context.Manual = &session.ManualClient{}
	}
	s.Context.Manual.Address = addr
	return e.ask(ctx, s, session.StateCaptureJobType, "Preguntá el tipo de trabajo mostrando las opciones.", msgAskJobType(e.catalog.Options()))
}
