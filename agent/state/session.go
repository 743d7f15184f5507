package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

// State is the session's position in the two-state conversation machine.
type State string

const (
	// StateIntent routes each turn by classification.
	StateIntent State = "intent"
	// StateCheckout locks the session to the checkout handler.
	StateCheckout State = "checkout"
)

var (
	ErrNilSession       = errors.New("session is nil")
	ErrInvalidSessionID = errors.New("session id is empty")
)

// Session is one conversation's volatile state. It is created on the first
// message, mutated by the orchestrator only, and torn down with the process.
type Session struct {
	ID      string
	State   State
	Cart    *Cart
	History []contractx.Turn

	UpdatedAt time.Time
}

func NewSession(id string, catalog contractx.Catalog, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateIntent,
		Cart:      NewCart(catalog),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn records one message in the conversation history.
func (s *Session) AppendTurn(role, content string) {
	s.History = append(s.History, contractx.Turn{Role: role, Content: content})
}

// HistorySnapshot returns a copy of the history so handlers cannot retain a
// reference into the session's backing array.
func (s *Session) HistorySnapshot() []contractx.Turn {
	if len(s.History) == 0 {
		return nil
	}
	out := make([]contractx.Turn, len(s.History))
	copy(out, s.History)
	return out
}

// Validate checks the session's structural invariants.
func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ID == "" {
		return ErrInvalidSessionID
	}
	switch s.State {
	case StateIntent, StateCheckout:
	default:
		return fmt.Errorf("unknown session state %q", s.State)
	}
	if s.Cart == nil {
		return errors.New("session cart is nil")
	}
	for _, l := range s.Cart.View().Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("cart line %s has non-positive quantity %d", l.ProductID, l.Quantity)
		}
	}
	return nil
}

// Transition is the centralized state transition function. It takes the
// current state and the final handler status of the turn and returns the
// next state. Unknown statuses keep the current state.
//
//	INTENT -> CHECKOUT   collecting_info | confirming (checkout engaged)
//	CHECKOUT -> CHECKOUT collecting_info | confirming
//	CHECKOUT -> INTENT   completed | failed | transfer_requested
//	INTENT -> INTENT     answered, or terminal checkout statuses
func Transition(current State, status contractx.HandlerStatus) State {
	switch status {
	case contractx.StatusCollectingInfo, contractx.StatusConfirming:
		return StateCheckout
	case contractx.StatusCompleted, contractx.StatusFailed, contractx.StatusTransferRequested:
		return StateIntent
	case contractx.StatusAnswered:
		return StateIntent
	default:
		return current
	}
}
