// Package session holds the per-conversation state and the stores that own it.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"quote-orchestrator/internal/slots"
)

// ErrNotFound is returned when a session id has no stored session.
var ErrNotFound = errors.New("session not found")

// State is one node of the quote dialogue.
type State string

const (
	StateStart                       State = "START"
	StateCaptureClientType           State = "CAPTURE_CLIENT_TYPE"
	StateCaptureClientExistingName   State = "CAPTURE_CLIENT_EXISTING_NAME"
	StateCaptureClientDisambiguation State = "CAPTURE_CLIENT_EXISTING_DISAMBIGUATION"
	StateCaptureClientManual         State = "CAPTURE_CLIENT_MANUAL"
	StateCaptureAddressManual        State = "CAPTURE_ADDRESS_MANUAL"
	StateCaptureBranch               State = "CAPTURE_BRANCH"
	StateCaptureJobType              State = "CAPTURE_JOB_TYPE"
	StateCaptureLaborCost            State = "CAPTURE_LABOR_COST"
	StateCaptureMaterialsConfirm     State = "CAPTURE_MATERIALS_CONFIRM"
	StateCaptureMaterials            State = "CAPTURE_MATERIALS"
	StateCaptureEquipmentConfirm     State = "CAPTURE_EQUIPMENT_CONFIRM"
	StateCaptureEquipment            State = "CAPTURE_EQUIPMENT"
	StateCaptureExtrasConfirm        State = "CAPTURE_EXTRAS_CONFIRM"
	StateCaptureExtras               State = "CAPTURE_EXTRAS"
	StateSummary                     State = "SUMMARY"
	StateConfirmation                State = "CONFIRMATION"
	StateSuccess                     State = "SUCCESS"
	StateError                       State = "ERROR"
)

// Terminal reports whether no further transitions leave s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError
}

func (s State) String() string {
	return string(s)
}

// Session is one quote conversation.
type Session struct {
	ID          string    `json:"sessionId"`
	State       State     `json:"state"`
	Context     *Context  `json:"context"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// New returns a session in the START state with an empty context. Every call
// gets a fresh conversation id, even when the session id is reused.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:          id,
		State:       StateStart,
		Context:     &Context{ConversationID: uuid.NewString()},
		LastUpdated: now,
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Context != nil {
		out.Context = s.Context.clone()
	} else {
		out.Context = &Context{}
	}
	return &out
}

// ClientMode tells which client path the conversation took.
type ClientMode string

const (
	ClientModeNone     ClientMode = ""
	ClientModeExisting ClientMode = "existing"
	ClientModeManual   ClientMode = "manual"
)

// ClientMatch is a candidate record shown during disambiguation.
type ClientMatch struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Branch is one selectable branch of an existing client.
type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ManualClient is a client typed in by the operator.
type ManualClient struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Category names one of the itemized lists of a quote.
type Category string

const (
	CategoryMaterials Category = "materials"
	CategoryEquipment Category = "equipment"
	CategoryExtras    Category = "extras"
)

// Categories lists the item categories in the order they are offered.
var Categories = []Category{CategoryMaterials, CategoryEquipment, CategoryExtras}

// Context accumulates the collected slots of a quote. A nil item list means the
// category has not been started; a non-nil list (possibly empty) means it has.
type Context struct {
	ConversationID   string        `json:"conversationId,omitempty"`
	ClientMode       ClientMode    `json:"clientMode,omitempty"`
	ClientID         string        `json:"clientId,omitempty"`
	ClientName       string        `json:"clientName,omitempty"`
	Matches          []ClientMatch `json:"matches,omitempty"`
	Manual           *ManualClient `json:"manualClient,omitempty"`
	Branches         []Branch      `json:"branches,omitempty"`
	BranchID         string        `json:"branchId,omitempty"`
	BranchName       string        `json:"branchName,omitempty"`
	JobType          string        `json:"jobType,omitempty"`
	LaborCost        *float64      `json:"laborCost,omitempty"`
	ConfirmZeroLabor bool          `json:"confirmZeroLabor,omitempty"`
	Materials        []slots.Item  `json:"materials"`
	Equipment        []slots.Item  `json:"equipment"`
	Extras           []slots.Item  `json:"extras"`
	Approved         bool          `json:"approved"`
	Status           string        `json:"status,omitempty"`
	TotalCost        float64       `json:"totalCost"`
	TotalWithTax     float64       `json:"totalWithTax"`
	QuoteID          string        `json:"quoteId,omitempty"`
}

// Items returns the list for cat; nil means the category was never started.
func (c *Context) Items(cat Category) []slots.Item {
	switch cat {
	case CategoryMaterials:
		return c.Materials
	case CategoryEquipment:
		return c.Equipment
	case CategoryExtras:
		return c.Extras
	}
	return nil
}

// StartCategory marks cat as present with an empty list. Existing entries are kept.
func (c *Context) StartCategory(cat Category) {
	if c.Items(cat) != nil {
		return
	}
	c.setItems(cat, []slots.Item{})
}

// AddItem appends item to cat, starting the category if needed.
func (c *Context) AddItem(cat Category, item slots.Item) {
	c.StartCategory(cat)
	c.setItems(cat, append(c.Items(cat), item))
}

// Labor returns the labor cost, zero when not yet captured.
func (c *Context) Labor() float64 {
	if c.LaborCost == nil {
		return 0
	}
	return *c.LaborCost
}

// ResetClient drops every client-derived slot so the client can be captured again.
func (c *Context) ResetClient() {
	c.ClientMode = ClientModeNone
	c.ClientID = ""
	c.ClientName = ""
	c.Matches = nil
	c.Manual = nil
	c.Branches = nil
	c.BranchID = ""
	c.BranchName = ""
}

func (c *Context) setItems(cat Category, items []slots.Item) {
	switch cat {
	case CategoryMaterials:
		c.Materials = items
	case CategoryEquipment:
		c.Equipment = items
	case CategoryExtras:
		c.Extras = items
	}
}

func (c *Context) clone() *Context {
	out := *c
	out.Matches = cloneSlice(c.Matches)
	out.Branches = cloneSlice(c.Branches)
	out.Materials = cloneSlice(c.Materials)
	out.Equipment = cloneSlice(c.Equipment)
	out.Extras = cloneSlice(c.Extras)
	if c.Manual != nil {
		m := *c.Manual
		out.Manual = &m
	}
	if c.LaborCost != nil {
		v := *c.LaborCost
		out.LaborCost = &v
	}
	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
