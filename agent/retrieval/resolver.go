package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

// Config tunes the semantic fallback path.
type Config struct {
	TopK      int     `envconfig:"TOP_K" split_words:"true" default:"5"`
	Threshold float64 `envconfig:"THRESHOLD" split_words:"true" default:"0.3"`
}

// Resolver implements hybrid exact-then-semantic product resolution.
// Exact matches (by id, then by unique name) win outright; only when both
// miss does the query fall through to similarity search. The two paths are
// mutually exclusive: an exact hit is never diluted with approximate ones.
type Resolver struct {
	catalog   contractx.Catalog
	topK      int
	threshold float64
}

func New(catalog contractx.Catalog, cfg Config) *Resolver {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Resolver{
		catalog:   catalog,
		topK:      topK,
		threshold: cfg.Threshold,
	}
}

// Result is the outcome of one resolution. Empty Products with a nil error
// means "no confident match"; the caller should ask a clarifying question
// rather than fabricate a product.
type Result struct {
	Exact    bool
	Products []contractx.ScoredProduct
}

func (r *Resolver) Resolve(ctx context.Context, query string) (Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Result{}, fmt.Errorf("%w: empty query", contractx.ErrValidation)
	}

	if p, err := r.catalog.GetByID(q); err == nil {
		return exactResult(p), nil
	} else if !errors.Is(err, contractx.ErrProductNotFound) {
		return Result{}, err
	}

	if p, err := r.catalog.GetByExactName(q); err == nil {
		return exactResult(p), nil
	} else if !errors.Is(err, contractx.ErrProductNotFound) {
		return Result{}, err
	}

	scored, err := r.catalog.SemanticSearch(ctx, q, r.topK)
	if err != nil {
		return Result{}, err
	}

	confident := make([]contractx.ScoredProduct, 0, len(scored))
	for _, s := range scored {
		if s.Score >= r.threshold {
			confident = append(confident, s)
		}
	}
	return Result{Products: confident}, nil
}

func exactResult(p contractx.Product) Result {
	return Result{
		Exact:    true,
		Products: []contractx.ScoredProduct{{Product: p, Score: 1}},
	}
}
