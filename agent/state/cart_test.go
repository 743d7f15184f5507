package state

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

type fakeCatalog struct {
	products map[string]contractx.Product
}

func (f *fakeCatalog) GetByID(id string) (contractx.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return contractx.Product{}, contractx.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetByExactName(name string) (contractx.Product, error) {
	for _, p := range f.products {
		if p.Name == name {
			return p, nil
		}
	}
	return contractx.Product{}, contractx.ErrProductNotFound
}

func (f *fakeCatalog) SemanticSearch(ctx context.Context, query string, k int) ([]contractx.ScoredProduct, error) {
	return nil, nil
}

func intPtr(v int) *int { return &v }

func newTestCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]contractx.Product{
		"TECH-001": {
			ID: "TECH-001", Name: "MacBook Pro", Price: 2499.99,
			StockStatus: contractx.StockInStock, StockQuantity: intPtr(25),
		},
		"TECH-002": {
			ID: "TECH-002", Name: "Dell XPS 13", Price: 1299.99,
			StockStatus: contractx.StockOutOfStock, StockQuantity: intPtr(0),
		},
		"TECH-005": {
			ID: "TECH-005", Name: "Sony WH-1000XM5", Price: 399.99,
			StockStatus: contractx.StockInStock, StockQuantity: intPtr(5),
		},
	}}
}

func TestCartAddComputesTotal(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())

	if _, err := cart.Add(context.Background(), "TECH-001", 1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := cart.Add(context.Background(), "TECH-005", 2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	view := cart.View()
	if len(view.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(view.Lines))
	}
	want := 2499.99 + 2*399.99
	if view.Total != want {
		t.Fatalf("Total = %v, want %v", view.Total, want)
	}
}

func TestCartAddMergesLineAndKeepsPriceSnapshot(t *testing.T) {
	t.Parallel()

	catalog := newTestCatalog()
	cart := NewCart(catalog)

	if _, err := cart.Add(context.Background(), "TECH-001", 1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Catalog price changes between the two adds; the line must keep the
	// price it was created with.
	p := catalog.products["TECH-001"]
	p.Price = 2999.99
	catalog.products["TECH-001"] = p

	line, err := cart.Add(context.Background(), "TECH-001", 2)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if cart.Len() != 1 {
		t.Fatalf("expected single merged line, got %d", cart.Len())
	}
	if line.Quantity != 3 {
		t.Fatalf("Quantity = %d, want 3", line.Quantity)
	}
	if line.UnitPrice != 2499.99 {
		t.Fatalf("UnitPrice = %v, want snapshot 2499.99", line.UnitPrice)
	}
}

func TestCartAddOutOfStock(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())

	_, err := cart.Add(context.Background(), "TECH-002", 1)
	if !errors.Is(err, contractx.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if cart.Len() != 0 {
		t.Fatalf("failed add must leave cart empty, got %d lines", cart.Len())
	}
}

func TestCartAddInsufficientStock(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())

	if _, err := cart.Add(context.Background(), "TECH-005", 3); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// 3 in cart + 3 requested exceeds the bound of 5.
	_, err := cart.Add(context.Background(), "TECH-005", 3)
	if !errors.Is(err, contractx.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	view := cart.View()
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 3 {
		t.Fatalf("failed add must not change the cart: %+v", view.Lines)
	}
}

func TestCartAddRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())
	for _, qty := range []int{0, -1} {
		if _, err := cart.Add(context.Background(), "TECH-001", qty); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("Add(qty=%d): expected ErrValidation, got %v", qty, err)
		}
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())
	_, err := cart.Add(context.Background(), "TECH-999", 1)
	if !errors.Is(err, contractx.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCartRemove(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())
	if _, err := cart.Add(context.Background(), "TECH-001", 1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := cart.Remove("TECH-001"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if cart.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", cart.Len())
	}

	if err := cart.Remove("TECH-001"); !errors.Is(err, contractx.ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestCartClear(t *testing.T) {
	t.Parallel()

	cart := NewCart(newTestCatalog())
	if _, err := cart.Add(context.Background(), "TECH-001", 2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	cart.Clear()
	if cart.Len() != 0 {
		t.Fatalf("expected empty cart after Clear, got %d lines", cart.Len())
	}
	if total := cart.View().Total; total != 0 {
		t.Fatalf("Total = %v, want 0", total)
	}
}
