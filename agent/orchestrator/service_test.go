package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/chatcart/chatcart/agent/contract"
	statex "github.com/chatcart/chatcart/agent/state"
)

type fakeCatalog struct{}

func (fakeCatalog) GetByID(id string) (contractx.Product, error) {
	return contractx.Product{}, contractx.ErrProductNotFound
}

func (fakeCatalog) GetByExactName(name string) (contractx.Product, error) {
	return contractx.Product{}, contractx.ErrProductNotFound
}

func (fakeCatalog) SemanticSearch(ctx context.Context, query string, k int) ([]contractx.ScoredProduct, error) {
	return nil, nil
}

type fakeClassifier struct {
	intents []contractx.Intent
	errs    []error
	calls   int
}

func (f *fakeClassifier) Classify(ctx context.Context, message string) (contractx.Intent, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.intents) {
		return f.intents[idx], nil
	}
	return contractx.IntentProduct, nil
}

type fakeHandler struct {
	responses []contractx.HandlerResponse
	errs      []error
	calls     int
	histories [][]contractx.Turn
}

func (f *fakeHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	idx := f.calls
	f.calls++
	f.histories = append(f.histories, req.History)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return contractx.HandlerResponse{}, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return contractx.HandlerResponse{}, fmt.Errorf("no handler response left at call=%d", f.calls)
	}
	return f.responses[idx], nil
}

type fakeRegistry struct {
	classifier *fakeClassifier
	product    *fakeHandler
	checkout   *fakeHandler
}

func (f *fakeRegistry) Classifier() contractx.Classifier { return f.classifier }
func (f *fakeRegistry) Product() contractx.Handler       { return f.product }
func (f *fakeRegistry) Checkout() contractx.Handler      { return f.checkout }

func newTestOrchestrator(t *testing.T, reg *fakeRegistry) (*Orchestrator, *statex.Registry) {
	t.Helper()
	sessions := statex.NewRegistry(fakeCatalog{})
	o, err := New(sessions, reg, Config{MaxRetries: 2, RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o, sessions
}

func sessionState(t *testing.T, sessions *statex.Registry, id string) *statex.Session {
	t.Helper()
	s, release, err := sessions.Acquire(id)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()
	return s
}

func TestHandleTurnInvalidInput(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, &fakeRegistry{
		classifier: &fakeClassifier{},
		product:    &fakeHandler{},
		checkout:   &fakeHandler{},
	})

	if _, err := o.HandleTurn(context.Background(), "  ", "hello"); err == nil {
		t.Fatal("expected error for empty session id")
	}
	if _, err := o.HandleTurn(context.Background(), "s1", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

// A full purchase conversation: browse, enter checkout, provide info,
// confirm. Classification runs only while the session is in the intent
// state; mid-checkout turns bypass it entirely.
func TestHandleTurnCheckoutFlow(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		intents: []contractx.Intent{
			contractx.IntentProduct,
			contractx.IntentPurchase,
			contractx.IntentProduct,
		},
	}
	product := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "We have the MacBook Pro in stock.", Status: contractx.StatusAnswered},
			{Message: "Anything else?", Status: contractx.StatusAnswered},
		},
	}
	checkout := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "I need your name, email, and shipping address.", Status: contractx.StatusCollectingInfo},
			{Message: "Here is your summary. Shall I place the order?", Status: contractx.StatusConfirming},
			{Message: "Your order ORD-12345678 is confirmed!", Status: contractx.StatusCompleted},
		},
	}

	o, sessions := newTestOrchestrator(t, &fakeRegistry{
		classifier: classifier,
		product:    product,
		checkout:   checkout,
	})
	ctx := context.Background()

	// Turn 1: product question, stays in intent state.
	if _, err := o.HandleTurn(ctx, "s1", "do you have laptops?"); err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}
	if st := sessionState(t, sessions, "s1"); st.State != statex.StateIntent {
		t.Fatalf("after turn 1 state = %s, want intent", st.State)
	}

	// Turn 2: purchase intent, enters checkout.
	if _, err := o.HandleTurn(ctx, "s1", "I want to buy the MacBook Pro"); err != nil {
		t.Fatalf("turn 2 error = %v", err)
	}
	if st := sessionState(t, sessions, "s1"); st.State != statex.StateCheckout {
		t.Fatalf("after turn 2 state = %s, want checkout", st.State)
	}
	if classifier.calls != 2 {
		t.Fatalf("classifier calls = %d, want 2", classifier.calls)
	}

	// Turns 3 and 4: mid-checkout, no classification.
	if _, err := o.HandleTurn(ctx, "s1", "Ada Lovelace, ada@example.com, 12 Analytical Way"); err != nil {
		t.Fatalf("turn 3 error = %v", err)
	}
	reply, err := o.HandleTurn(ctx, "s1", "yes, place it")
	if err != nil {
		t.Fatalf("turn 4 error = %v", err)
	}
	if !strings.Contains(reply, "ORD-12345678") {
		t.Fatalf("unexpected final reply: %q", reply)
	}
	if classifier.calls != 2 {
		t.Fatalf("mid-checkout turns must not classify, calls = %d", classifier.calls)
	}

	st := sessionState(t, sessions, "s1")
	if st.State != statex.StateIntent {
		t.Fatalf("completed order must return to intent, state = %s", st.State)
	}
	if len(st.History) != 8 {
		t.Fatalf("expected 8 history turns, got %d", len(st.History))
	}

	// Turn 5: completion released the session, so classification resumes.
	if _, err := o.HandleTurn(ctx, "s1", "do you have chargers?"); err != nil {
		t.Fatalf("turn 5 error = %v", err)
	}
	if classifier.calls != 3 {
		t.Fatalf("post-completion turn must classify again, calls = %d", classifier.calls)
	}
}

func TestHandleTurnHistoryVisibility(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		intents: []contractx.Intent{contractx.IntentProduct, contractx.IntentPurchase},
	}
	product := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "In stock.", Status: contractx.StatusAnswered},
		},
	}
	checkout := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "Need your details.", Status: contractx.StatusCollectingInfo},
		},
	}

	o, _ := newTestOrchestrator(t, &fakeRegistry{
		classifier: classifier,
		product:    product,
		checkout:   checkout,
	})
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "s1", "do you have laptops?"); err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}
	if _, err := o.HandleTurn(ctx, "s1", "buy one"); err != nil {
		t.Fatalf("turn 2 error = %v", err)
	}

	if len(product.histories) != 1 || product.histories[0] != nil {
		t.Fatalf("product handler must see no history, got %+v", product.histories)
	}
	if len(checkout.histories) != 1 || len(checkout.histories[0]) != 2 {
		t.Fatalf("checkout handler must see the full prior history, got %+v", checkout.histories)
	}
}

func TestHandleTurnTransferRedispatchesOnce(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{intents: []contractx.Intent{contractx.IntentProduct}}
	product := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "The MacBook Pro is $2499.99.", Status: contractx.StatusTransferRequested},
		},
	}
	checkout := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "I need your name, email, and shipping address.", Status: contractx.StatusCollectingInfo},
		},
	}

	o, sessions := newTestOrchestrator(t, &fakeRegistry{
		classifier: classifier,
		product:    product,
		checkout:   checkout,
	})

	reply, err := o.HandleTurn(context.Background(), "s1", "I'd like to order the MacBook Pro")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if product.calls != 1 || checkout.calls != 1 {
		t.Fatalf("expected one call each, got product=%d checkout=%d", product.calls, checkout.calls)
	}
	if !strings.Contains(reply, "$2499.99") || !strings.Contains(reply, "name, email") {
		t.Fatalf("reply should combine both handlers: %q", reply)
	}
	if st := sessionState(t, sessions, "s1"); st.State != statex.StateCheckout {
		t.Fatalf("transfer turn must land in checkout, state = %s", st.State)
	}
}

func TestHandleTurnRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		errs:    []error{contractx.ErrModelInvoke},
		intents: []contractx.Intent{"", contractx.IntentProduct},
	}
	product := &fakeHandler{
		responses: []contractx.HandlerResponse{
			{Message: "In stock.", Status: contractx.StatusAnswered},
		},
	}

	o, _ := newTestOrchestrator(t, &fakeRegistry{
		classifier: classifier,
		product:    product,
		checkout:   &fakeHandler{},
	})

	reply, err := o.HandleTurn(context.Background(), "s1", "do you have laptops?")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "In stock." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if classifier.calls != 2 {
		t.Fatalf("expected one retry, classifier calls = %d", classifier.calls)
	}
}

func TestHandleTurnAbsorbsExhaustedRetries(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		errs: []error{contractx.ErrModelInvoke, contractx.ErrModelInvoke, contractx.ErrModelInvoke},
	}

	o, sessions := newTestOrchestrator(t, &fakeRegistry{
		classifier: classifier,
		product:    &fakeHandler{},
		checkout:   &fakeHandler{},
	})

	reply, err := o.HandleTurn(context.Background(), "s1", "hello")
	if err != nil {
		t.Fatalf("exhausted retries must not surface an error, got %v", err)
	}
	if reply != fallbackReply {
		t.Fatalf("reply = %q, want fallback", reply)
	}
	if classifier.calls != 3 {
		t.Fatalf("classifier calls = %d, want 3", classifier.calls)
	}

	st := sessionState(t, sessions, "s1")
	if st.State != statex.StateIntent || len(st.History) != 0 {
		t.Fatalf("absorbed turn must not mutate the session: state=%s history=%d", st.State, len(st.History))
	}
}

func TestHandleTurnValidationErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		errs: []error{contractx.ErrValidation},
	}

	o, _ := newTestOrchestrator(t, &fakeRegistry{
		classifier: classifier,
		product:    &fakeHandler{},
		checkout:   &fakeHandler{},
	})

	_, err := o.HandleTurn(context.Background(), "s1", "hello")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if classifier.calls != 1 {
		t.Fatalf("validation failure must not retry, calls = %d", classifier.calls)
	}
}
