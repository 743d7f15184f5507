package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

const maxBackoff = 5 * time.Second

// retryingRegistry decorates a registry so that classifier and handler
// calls are retried with capped exponential backoff on transient errors.
// Handlers only return errors before mutating the cart, so a retried call
// never replays a mutation.
type retryingRegistry struct {
	inner    contractx.Registry
	attempts int
	backoff  time.Duration
}

func newRetryingRegistry(inner contractx.Registry, cfg Config) contractx.Registry {
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &retryingRegistry{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
	}
}

var _ contractx.Registry = (*retryingRegistry)(nil)

func (r *retryingRegistry) Classifier() contractx.Classifier {
	return &retryingClassifier{inner: r.inner.Classifier(), reg: r}
}

func (r *retryingRegistry) Product() contractx.Handler {
	return &retryingHandler{inner: r.inner.Product(), reg: r}
}

func (r *retryingRegistry) Checkout() contractx.Handler {
	return &retryingHandler{inner: r.inner.Checkout(), reg: r}
}

// do runs fn up to attempts times, sleeping between tries. Only transient
// errors are retried; validation errors and context cancellation return
// immediately.
func (r *retryingRegistry) do(ctx context.Context, op string, fn func() error) error {
	var err error
	backoff := r.backoff
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			if serr := sleep(ctx, backoff); serr != nil {
				return serr
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err = fn()
		if err == nil || !contractx.IsTransient(err) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("transient failure")
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type retryingClassifier struct {
	inner contractx.Classifier
	reg   *retryingRegistry
}

func (c *retryingClassifier) Classify(ctx context.Context, message string) (contractx.Intent, error) {
	var intent contractx.Intent
	err := c.reg.do(ctx, "classify", func() error {
		var err error
		intent, err = c.inner.Classify(ctx, message)
		return err
	})
	return intent, err
}

type retryingHandler struct {
	inner contractx.Handler
	reg   *retryingRegistry
}

func (h *retryingHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	var resp contractx.HandlerResponse
	err := h.reg.do(ctx, "handle", func() error {
		var err error
		resp, err = h.inner.Handle(ctx, req)
		return err
	})
	return resp, err
}
