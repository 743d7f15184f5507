package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/chatcart/chatcart/agent/contract"
	statex "github.com/chatcart/chatcart/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session is missing")
)

type GraphInput struct {
	Session *statex.Session
	Text    string
}

type GraphOutput struct {
	Reply string
}

type GraphState struct {
	Session *statex.Session
	Text    string
	Now     time.Time

	Intent contractx.Intent

	Message string
	Status  contractx.HandlerStatus
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.Session == nil {
		return nil, ErrInvalidSession
	}
	if err := in.Session.Validate(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		Session: in.Session,
		Text:    text,
		Now:     nowFn().UTC(),
	}, nil
}
