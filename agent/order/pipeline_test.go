package order

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/chatcart/chatcart/agent/contract"
	statex "github.com/chatcart/chatcart/agent/state"
)

type mutableCatalog struct {
	products map[string]contractx.Product
}

func (f *mutableCatalog) GetByID(id string) (contractx.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return contractx.Product{}, contractx.ErrProductNotFound
	}
	return p, nil
}

func (f *mutableCatalog) GetByExactName(name string) (contractx.Product, error) {
	return contractx.Product{}, contractx.ErrProductNotFound
}

func (f *mutableCatalog) SemanticSearch(ctx context.Context, query string, k int) ([]contractx.ScoredProduct, error) {
	return nil, nil
}

func (f *mutableCatalog) setStock(id string, status contractx.StockStatus, qty int) {
	p := f.products[id]
	p.StockStatus = status
	p.StockQuantity = &qty
	f.products[id] = p
}

type failingStore struct {
	err     error
	commits int
}

func (f *failingStore) Commit(ctx context.Context, order contractx.Order) (string, error) {
	f.commits++
	if f.err != nil {
		return "", f.err
	}
	return "ORD-DEADBEEF", nil
}

func intPtr(v int) *int { return &v }

func newPipelineCatalog() *mutableCatalog {
	return &mutableCatalog{products: map[string]contractx.Product{
		"TECH-001": {
			ID: "TECH-001", Name: "MacBook Pro", Price: 2499.99,
			StockStatus: contractx.StockInStock, StockQuantity: intPtr(25),
		},
		"TECH-009": {
			ID: "TECH-009", Name: "Anker 737 Power Bank", Price: 149.99,
			StockStatus: contractx.StockInStock, StockQuantity: intPtr(50),
		},
	}}
}

var validCustomer = contractx.Customer{
	Name:    "Ada Lovelace",
	Email:   "ada@example.com",
	Address: "12 Analytical Way, London",
}

func loadedCart(t *testing.T, catalog contractx.Catalog) *statex.Cart {
	t.Helper()
	cart := statex.NewCart(catalog)
	if _, err := cart.Add(context.Background(), "TECH-009", 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return cart
}

func TestCreateOrderEmptyCart(t *testing.T) {
	t.Parallel()

	catalog := newPipelineCatalog()
	store := &failingStore{}
	p := NewPipeline(catalog, store)

	_, err := p.CreateOrder(context.Background(), statex.NewCart(catalog), validCustomer)
	if !errors.Is(err, contractx.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if store.commits != 0 {
		t.Fatal("empty cart must never reach the store")
	}
}

func TestCreateOrderInvalidCustomerInfo(t *testing.T) {
	t.Parallel()

	catalog := newPipelineCatalog()

	cases := []struct {
		name     string
		customer contractx.Customer
	}{
		{"missing name", contractx.Customer{Email: "ada@example.com", Address: "somewhere"}},
		{"missing email", contractx.Customer{Name: "Ada", Address: "somewhere"}},
		{"email without at", contractx.Customer{Name: "Ada", Email: "ada.example.com", Address: "somewhere"}},
		{"email with empty domain", contractx.Customer{Name: "Ada", Email: "ada@", Address: "somewhere"}},
		{"email with two ats", contractx.Customer{Name: "Ada", Email: "a@b@c.com", Address: "somewhere"}},
		{"missing address", contractx.Customer{Name: "Ada", Email: "ada@example.com"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &failingStore{}
			p := NewPipeline(catalog, store)
			cart := loadedCart(t, catalog)

			_, err := p.CreateOrder(context.Background(), cart, tc.customer)
			if !errors.Is(err, contractx.ErrInvalidCustomerInfo) {
				t.Fatalf("expected ErrInvalidCustomerInfo, got %v", err)
			}
			if store.commits != 0 {
				t.Fatal("invalid customer must never reach the store")
			}
			if cart.Len() != 1 {
				t.Fatal("failed order must leave the cart intact")
			}
		})
	}
}

func TestCreateOrderStockChanged(t *testing.T) {
	t.Parallel()

	catalog := newPipelineCatalog()
	store := &failingStore{}
	p := NewPipeline(catalog, store)
	cart := loadedCart(t, catalog)

	// Stock drops below the cart quantity after the line was added.
	catalog.setStock("TECH-009", contractx.StockLowStock, 1)

	_, err := p.CreateOrder(context.Background(), cart, validCustomer)
	var stockChanged *contractx.StockChangedError
	if !errors.As(err, &stockChanged) {
		t.Fatalf("expected StockChangedError, got %v", err)
	}
	if len(stockChanged.ProductIDs) != 1 || stockChanged.ProductIDs[0] != "TECH-009" {
		t.Fatalf("unexpected offenders: %v", stockChanged.ProductIDs)
	}
	if store.commits != 0 {
		t.Fatal("stock drift must never reach the store")
	}
	if cart.Len() != 1 {
		t.Fatal("failed order must leave the cart intact")
	}
}

func TestCreateOrderStockChangedOnDepletion(t *testing.T) {
	t.Parallel()

	catalog := newPipelineCatalog()
	p := NewPipeline(catalog, &failingStore{})
	cart := loadedCart(t, catalog)

	catalog.setStock("TECH-009", contractx.StockOutOfStock, 0)

	_, err := p.CreateOrder(context.Background(), cart, validCustomer)
	var stockChanged *contractx.StockChangedError
	if !errors.As(err, &stockChanged) {
		t.Fatalf("expected StockChangedError, got %v", err)
	}
}

func TestCreateOrderStoreFailure(t *testing.T) {
	t.Parallel()

	catalog := newPipelineCatalog()
	store := &failingStore{err: errors.New("connection refused")}
	p := NewPipeline(catalog, store)
	cart := loadedCart(t, catalog)

	_, err := p.CreateOrder(context.Background(), cart, validCustomer)
	if !errors.Is(err, contractx.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if cart.Len() != 1 {
		t.Fatal("failed write must leave the cart intact")
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	t.Parallel()

	catalog := newPipelineCatalog()
	store := NewMemoryStore()
	p := NewPipeline(catalog, store)

	cart := statex.NewCart(catalog)
	if _, err := cart.Add(context.Background(), "TECH-001", 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if _, err := cart.Add(context.Background(), "TECH-009", 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	receipt, err := p.CreateOrder(context.Background(), cart, validCustomer)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	wantTotal := 2499.99 + 2*149.99
	if receipt.Total != wantTotal {
		t.Fatalf("Total = %v, want %v", receipt.Total, wantTotal)
	}
	if !orderIDPattern.MatchString(receipt.OrderID) {
		t.Fatalf("order id %q does not match ORD-XXXXXXXX", receipt.OrderID)
	}

	if cart.Len() != 0 {
		t.Fatal("successful order must clear the cart")
	}

	committed, ok := store.Get(receipt.OrderID)
	if !ok {
		t.Fatal("order not found in store")
	}
	if len(committed.Lines) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(committed.Lines))
	}
	if committed.Lines[1].Subtotal != 2*149.99 {
		t.Fatalf("line subtotal = %v, want %v", committed.Lines[1].Subtotal, 2*149.99)
	}
}
