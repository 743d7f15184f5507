package state

import (
	"context"
	"fmt"

	contractx "github.com/chatcart/chatcart/agent/contract"
)

// Cart is the in-session mutable cart. It holds at most one line per
// product id; quantities are strictly positive. Not safe for concurrent
// use: the session registry serializes turns per session.
type Cart struct {
	catalog contractx.Catalog
	lines   []contractx.CartLine
}

func NewCart(catalog contractx.Catalog) *Cart {
	return &Cart{catalog: catalog}
}

var _ contractx.CartMutator = (*Cart)(nil)

// Add validates the product against the catalog and creates or merges a
// line. An existing line keeps its unit-price snapshot; only the quantity
// grows. The stock bound, when known, is checked against the requested
// quantity plus whatever is already in the cart.
func (c *Cart) Add(ctx context.Context, productID string, quantity int) (contractx.CartLine, error) {
	if quantity <= 0 {
		return contractx.CartLine{}, fmt.Errorf("%w: quantity must be positive, got %d", contractx.ErrValidation, quantity)
	}

	product, err := c.catalog.GetByID(productID)
	if err != nil {
		return contractx.CartLine{}, fmt.Errorf("%w: %s", contractx.ErrProductNotFound, productID)
	}
	if product.StockStatus == contractx.StockOutOfStock {
		return contractx.CartLine{}, fmt.Errorf("%w: %s", contractx.ErrOutOfStock, product.Name)
	}

	idx := c.indexOf(productID)
	inCart := 0
	if idx >= 0 {
		inCart = c.lines[idx].Quantity
	}
	if product.StockQuantity != nil && *product.StockQuantity < quantity+inCart {
		return contractx.CartLine{}, fmt.Errorf("%w: %s has %d available, requested %d",
			contractx.ErrInsufficientStock, product.Name, *product.StockQuantity, quantity+inCart)
	}

	if idx >= 0 {
		c.lines[idx].Quantity += quantity
		return c.lines[idx], nil
	}

	line := contractx.CartLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// Remove deletes the line for productID.
func (c *Cart) Remove(productID string) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", contractx.ErrLineNotFound, productID)
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

// View returns an ordered copy of all lines plus the computed total.
func (c *Cart) View() contractx.CartView {
	lines := make([]contractx.CartLine, len(c.lines))
	copy(lines, c.lines)

	total := 0.0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return contractx.CartView{Lines: lines, Total: total}
}

// Clear empties the cart. Used only by the order pipeline on a successful
// commit and by explicit user cancellation.
func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
