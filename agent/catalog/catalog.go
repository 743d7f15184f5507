package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

// Embedder turns texts into vectors for the semantic index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Catalog wraps the product source-of-truth (a JSON file) and a semantic
// similarity index over product text. Products are immutable after load;
// only the embedding cache is mutated, under its own lock.
type Catalog struct {
	products []contractx.Product
	byID     map[string]int
	// byName maps whitespace-normalized lowercase names to product index.
	// Names that appear more than once are absent: exact-name lookup must
	// return a unique product or nothing.
	byName map[string]int

	embedder Embedder

	mu      sync.RWMutex
	vectors [][]float64
}

var _ contractx.Catalog = (*Catalog)(nil)

// Load reads a product catalog from a JSON file.
func Load(path string, embedder Embedder) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var products []contractx.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode catalog file %s: %w", path, err)
	}
	return New(products, embedder), nil
}

// New builds a catalog from an in-memory product list.
func New(products []contractx.Product, embedder Embedder) *Catalog {
	c := &Catalog{
		products: products,
		byID:     make(map[string]int, len(products)),
		byName:   make(map[string]int, len(products)),
		embedder: embedder,
	}

	duplicates := make(map[string]bool)
	for i, p := range products {
		c.byID[p.ID] = i
		name := normalizeName(p.Name)
		if _, seen := c.byName[name]; seen {
			duplicates[name] = true
		}
		c.byName[name] = i
	}
	for name := range duplicates {
		delete(c.byName, name)
	}
	return c
}

func (c *Catalog) GetByID(id string) (contractx.Product, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return contractx.Product{}, fmt.Errorf("%w: %s", contractx.ErrProductNotFound, id)
	}
	return c.products[idx], nil
}

// GetByExactName matches case-insensitively with whitespace normalized, and
// only when the name identifies a unique product.
func (c *Catalog) GetByExactName(name string) (contractx.Product, error) {
	idx, ok := c.byName[normalizeName(name)]
	if !ok {
		return contractx.Product{}, fmt.Errorf("%w: %s", contractx.ErrProductNotFound, name)
	}
	return c.products[idx], nil
}

// Products returns a copy of the full catalog.
func (c *Catalog) Products() []contractx.Product {
	out := make([]contractx.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Reindex embeds every product document. Called lazily by SemanticSearch on
// first use; hosts may call it eagerly at startup.
func (c *Catalog) Reindex(ctx context.Context) error {
	docs := make([]string, len(c.products))
	for i, p := range c.products {
		docs[i] = p.Name + ". " + p.Description
	}

	vectors, err := c.embedder.Embed(ctx, docs)
	if err != nil {
		return fmt.Errorf("embed catalog documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d documents",
			contractx.ErrSchemaViolation, len(vectors), len(docs))
	}

	c.mu.Lock()
	c.vectors = vectors
	c.mu.Unlock()
	return nil
}

// SemanticSearch returns the k nearest products to the query by cosine
// similarity, ordered by descending score.
func (c *Catalog) SemanticSearch(ctx context.Context, query string, k int) ([]contractx.ScoredProduct, error) {
	if k <= 0 || len(c.products) == 0 {
		return nil, nil
	}

	c.mu.RLock()
	indexed := len(c.vectors) == len(c.products)
	c.mu.RUnlock()
	if !indexed {
		if err := c.Reindex(ctx); err != nil {
			return nil, err
		}
	}

	queryVecs, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVecs) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query",
			contractx.ErrSchemaViolation, len(queryVecs))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	scored := make([]contractx.ScoredProduct, 0, len(c.products))
	for i, p := range c.products {
		scored = append(scored, contractx.ScoredProduct{
			Product: p,
			Score:   cosine(queryVecs[0], c.vectors[i]),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
