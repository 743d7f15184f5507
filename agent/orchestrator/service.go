package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/chatcart/chatcart/agent/contract"
	nodex "github.com/chatcart/chatcart/agent/nodes/orchestrator"
	statex "github.com/chatcart/chatcart/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// fallbackReply is returned when every retry of a transient failure is
// exhausted. The turn is absorbed: session state and cart are unchanged and
// nothing is appended to history.
const fallbackReply = "Sorry, I'm having trouble responding right now. Please try again in a moment."

// Config tunes retry behavior for transient failures (model invocations and
// schema violations). Validation failures are never retried.
type Config struct {
	MaxRetries   int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" split_words:"true" default:"200ms"`
}

// Orchestrator is the session-facing entry point. Each turn acquires the
// session's lock, runs the turn graph against it, and releases the lock, so
// concurrent messages for one session are strictly serialized while
// distinct sessions proceed in parallel.
type Orchestrator struct {
	sessions statex.Sessions
	registry contractx.Registry

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(sessions statex.Sessions, registry contractx.Registry, cfg Config) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session registry is required")
	}
	if registry == nil {
		return nil, errors.New("handler registry is required")
	}

	o := &Orchestrator{
		sessions: sessions,
		registry: newRetryingRegistry(registry, cfg),
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message for one session and returns the
// assistant reply. Transient failures, after retries, degrade to a generic
// fallback reply rather than an error; the session is left untouched.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, text string) (string, error) {
	session, release, err := o.sessions.Acquire(sessionID)
	if err != nil {
		return "", err
	}
	defer release()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Session: session,
		Text:    text,
	})
	if err != nil {
		if contractx.IsTransient(err) {
			log.Error().Err(err).Str("session_id", sessionID).Msg("turn absorbed after exhausting retries")
			return fallbackReply, nil
		}
		return "", err
	}
	return out.Reply, nil
}
