package orchestratornode

import (
	"fmt"

	contractx "github.com/chatcart/chatcart/agent/contract"
	statex "github.com/chatcart/chatcart/agent/state"
)

// ApplyOutcome commits the turn to the session: state transition, history
// append, timestamp. It runs only after the handler succeeded, so a failed
// turn leaves the session exactly as it was.
func ApplyOutcome(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Status == contractx.StatusCompleted && in.Session.Cart.Len() != 0 {
		return nil, fmt.Errorf("%w: completed order left a non-empty cart", contractx.ErrValidation)
	}

	in.Session.State = statex.Transition(in.Session.State, in.Status)
	in.Session.AppendTurn(contractx.RoleUser, in.Text)
	in.Session.AppendTurn(contractx.RoleAssistant, in.Message)
	in.Session.Touch(in.Now)
	return in, nil
}
