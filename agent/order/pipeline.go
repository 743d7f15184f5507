package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/rs/zerolog/log"
)

// Pipeline turns a cart into a committed order in two phases: re-validate
// every line against current catalog truth, then persist atomically and
// clear the cart. Stock can change between the moment a line was added and
// the moment the user confirms; skipping the re-check would let a
// since-depleted item be ordered.
type Pipeline struct {
	catalog contractx.Catalog
	store   contractx.OrderStore
	now     func() time.Time
}

func NewPipeline(catalog contractx.Catalog, store contractx.OrderStore) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		store:   store,
		now:     time.Now,
	}
}

// Receipt is the successful outcome of CreateOrder.
type Receipt struct {
	OrderID string
	Total   float64
}

// CreateOrder validates and commits the cart. On success the cart is
// cleared as part of the same call; on any failure the cart is left intact.
func (p *Pipeline) CreateOrder(ctx context.Context, cart contractx.CartMutator, customer contractx.Customer) (Receipt, error) {
	view := cart.View()
	if len(view.Lines) == 0 {
		return Receipt{}, contractx.ErrEmptyCart
	}

	if err := validateCustomer(customer); err != nil {
		return Receipt{}, err
	}

	if offenders := p.revalidate(view.Lines); len(offenders) > 0 {
		return Receipt{}, &contractx.StockChangedError{ProductIDs: offenders}
	}

	order := buildOrder(view, customer, p.now().UTC())
	orderID, err := p.store.Commit(ctx, order)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", contractx.ErrStorage, err)
	}

	cart.Clear()
	log.Info().
		Str("order_id", orderID).
		Float64("total", order.Total).
		Int("lines", len(order.Lines)).
		Msg("order committed")

	return Receipt{OrderID: orderID, Total: order.Total}, nil
}

// revalidate returns the ids of lines that no longer pass stock checks.
// A product that vanished from the catalog counts as changed stock.
func (p *Pipeline) revalidate(lines []contractx.CartLine) []string {
	var offenders []string
	for _, l := range lines {
		product, err := p.catalog.GetByID(l.ProductID)
		if err != nil {
			offenders = append(offenders, l.ProductID)
			continue
		}
		if product.StockStatus == contractx.StockOutOfStock {
			offenders = append(offenders, l.ProductID)
			continue
		}
		if product.StockQuantity != nil && *product.StockQuantity < l.Quantity {
			offenders = append(offenders, l.ProductID)
		}
	}
	return offenders
}

func validateCustomer(c contractx.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", contractx.ErrInvalidCustomerInfo)
	}
	if !validEmail(c.Email) {
		return fmt.Errorf("%w: email %q is malformed", contractx.ErrInvalidCustomerInfo, c.Email)
	}
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: shipping address is required", contractx.ErrInvalidCustomerInfo)
	}
	return nil
}

// validEmail checks structure only: a non-empty local part, one @, and a
// non-empty domain segment.
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	return domain != "" && !strings.ContainsAny(domain, " ")
}

func buildOrder(view contractx.CartView, customer contractx.Customer, createdAt time.Time) contractx.Order {
	lines := make([]contractx.OrderLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, contractx.OrderLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal(),
		})
	}
	return contractx.Order{
		CustomerName:    strings.TrimSpace(customer.Name),
		CustomerEmail:   strings.TrimSpace(customer.Email),
		ShippingAddress: strings.TrimSpace(customer.Address),
		Lines:           lines,
		Total:           view.Total,
		CreatedAt:       createdAt,
	}
}
