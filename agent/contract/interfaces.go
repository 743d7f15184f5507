package contract

import "context"

// Classifier labels a user message with a routing intent.
type Classifier interface {
	Classify(ctx context.Context, message string) (Intent, error)
}

// FieldExtractor pulls checkout fields out of the current message and the
// full conversation history. It is stateless; cross-turn fields are
// re-derived from history on every call.
type FieldExtractor interface {
	Extract(ctx context.Context, message string, history []Turn) (CheckoutFields, error)
}

// Composer turns retrieved products into a natural-language reply for the
// product-lookup handler.
type Composer interface {
	Compose(ctx context.Context, query string, products []ScoredProduct) (ComposerReply, error)
}

// Handler is a specialist responder invoked by the orchestrator for one turn.
type Handler interface {
	Handle(ctx context.Context, req HandlerRequest) (HandlerResponse, error)
}

// Registry hands out the classifier and the two handler adapters.
type Registry interface {
	Classifier() Classifier
	Product() Handler
	Checkout() Handler
}

// Catalog is the read-only product source-of-truth plus its similarity index.
type Catalog interface {
	GetByID(id string) (Product, error)
	GetByExactName(name string) (Product, error)
	SemanticSearch(ctx context.Context, query string, k int) ([]ScoredProduct, error)
}

// CartMutator is the scoped, exclusive cart handle passed to the active
// handler for the duration of one call.
type CartMutator interface {
	Add(ctx context.Context, productID string, quantity int) (CartLine, error)
	Remove(productID string) error
	View() CartView
	Clear()
	Len() int
}

// OrderStore atomically persists an order and returns the generated id.
// A failing write must wrap ErrStorage so it is distinguishable from
// validation failures.
type OrderStore interface {
	Commit(ctx context.Context, order Order) (string, error)
}
