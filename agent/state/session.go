package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

// HistoryWindow is how many recent messages are replayed to the model.
const HistoryWindow = 8

type Layer string

const (
	LayerDispatcher Layer = "dispatcher"
	LayerSpecialist Layer = "specialist"
)

var (
	ErrEmptySpecialist   = errors.New("specialist id is empty")
	ErrInvalidLayer      = errors.New("invalid layer")
	ErrLayerInconsistent = errors.New("layer and active specialist disagree")
)

// Message is one history entry. It is never edited after Append.
type Message struct {
	Role      contractx.Role `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// Session is the live dialogue state of one call. It is owned by exactly one
// orchestrator at a time.
type Session struct {
	SessionID        string    `json:"session_id"`
	CustomerID       string    `json:"customer_id,omitempty"`
	Layer            Layer     `json:"layer"`
	ActiveSpecialist string    `json:"active_specialist,omitempty"`
	History          []Message `json:"history,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SpecialistCatalog answers whether a specialist id exists.
type SpecialistCatalog interface {
	HasSpecialist(id string) bool
}

func NewSession(sessionID, customerID string, now time.Time) *Session {
	return &Session{
		SessionID:  sessionID,
		CustomerID: strings.TrimSpace(customerID),
		Layer:      LayerDispatcher,
		StartedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) InDispatcher() bool {
	return s.Layer != LayerSpecialist
}

/* ---------------------------- Layer transitions ---------------------------- */

// EnterSpecialist switches to the specialist layer. The bound customer id is
// kept.
func (s *Session) EnterSpecialist(id string, now time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptySpecialist
	}
	s.Layer = LayerSpecialist
	s.ActiveSpecialist = id
	s.Touch(now)
	return nil
}

// ReturnToDispatcher reports false when the session is already at the top level.
func (s *Session) ReturnToDispatcher(now time.Time) bool {
	if s.InDispatcher() {
		return false
	}
	s.Layer = LayerDispatcher
	s.ActiveSpecialist = ""
	s.Touch(now)
	return true
}

/* --------------------------------- History --------------------------------- */

func (s *Session) Append(role contractx.Role, content string, now time.Time) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: now.UTC()})
	s.Touch(now)
}

// ResetHistory drops the live history only; the persisted log is untouched.
func (s *Session) ResetHistory() {
	s.History = nil
}

// Recent returns a copy of the last n messages.
func (s *Session) Recent(n int) []Message {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}

func (s *Session) BindCustomer(id string) {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		s.CustomerID = trimmed
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.History != nil {
		cp.History = make([]Message, len(s.History))
		copy(cp.History, s.History)
	}
	return &cp
}

// Validate checks structural invariants. With a catalog it also requires the
// active specialist to exist.
func (s *Session) Validate(catalog SpecialistCatalog) error {
	switch s.Layer {
	case LayerDispatcher:
		if s.ActiveSpecialist != "" {
			return fmt.Errorf("%w: dispatcher with specialist %q", ErrLayerInconsistent, s.ActiveSpecialist)
		}
	case LayerSpecialist:
		if s.ActiveSpecialist == "" {
			return fmt.Errorf("%w: specialist layer without specialist", ErrLayerInconsistent)
		}
		if catalog != nil && !catalog.HasSpecialist(s.ActiveSpecialist) {
			return fmt.Errorf("%w: %s", contractx.ErrUnknownSpecialist, s.ActiveSpecialist)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLayer, s.Layer)
	}
	return nil
}
