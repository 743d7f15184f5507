package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/chatcart/chatcart/agent/order"
	"github.com/chatcart/chatcart/agent/retrieval"
	"github.com/rs/zerolog/log"
)

// CheckoutHandler drives the purchase flow: it extracts structured fields
// from the turn, maintains the cart, collects customer info, and runs the
// order pipeline on an explicit confirmation. All flow decisions come from
// the extracted fields; the LLM never touches the cart or the store.
type CheckoutHandler struct {
	extractor contractx.FieldExtractor
	resolver  *retrieval.Resolver
	pipeline  *order.Pipeline
}

func NewCheckoutHandler(extractor contractx.FieldExtractor, resolver *retrieval.Resolver, pipeline *order.Pipeline) *CheckoutHandler {
	return &CheckoutHandler{
		extractor: extractor,
		resolver:  resolver,
		pipeline:  pipeline,
	}
}

var _ contractx.Handler = (*CheckoutHandler)(nil)

func (h *CheckoutHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	fields, err := h.extractor.Extract(ctx, req.Message, req.History)
	if err != nil {
		return contractx.HandlerResponse{}, err
	}

	switch fields.Action {
	case contractx.ActionCancel:
		req.Cart.Clear()
		return contractx.HandlerResponse{
			Message: "No problem, I've cancelled the checkout and emptied your cart. Let me know if there's anything else you'd like to look at.",
			Status:  contractx.StatusFailed,
		}, nil
	case contractx.ActionRemove:
		return h.removeLine(ctx, req.Cart, fields)
	}

	var note string
	if fields.ProductRef != "" {
		resp, added, err := h.addProduct(ctx, req.Cart, fields)
		if err != nil {
			return contractx.HandlerResponse{}, err
		}
		if resp != nil {
			return *resp, nil
		}
		note = added
	}

	if req.Cart.Len() == 0 {
		return contractx.HandlerResponse{
			Message: "Your cart is empty. Which product would you like to buy?",
			Status:  contractx.StatusCollectingInfo,
		}, nil
	}

	customer := contractx.Customer{
		Name:    fields.Name,
		Email:   fields.Email,
		Address: fields.Address,
	}

	if missing := missingCustomerFields(customer); missing != "" {
		msg := fmt.Sprintf("To place the order I still need your %s.", missing)
		if note != "" {
			msg = note + " " + msg
		}
		return contractx.HandlerResponse{
			Message: msg,
			Status:  contractx.StatusCollectingInfo,
		}, nil
	}

	if fields.Action == contractx.ActionConfirm {
		return h.commit(ctx, req.Cart, customer)
	}

	msg := orderSummary(req.Cart.View(), customer)
	if note != "" {
		msg = note + "\n\n" + msg
	}
	return contractx.HandlerResponse{
		Message: msg,
		Status:  contractx.StatusConfirming,
	}, nil
}

// addProduct resolves the referenced product and adds it to the cart. A
// non-nil response short-circuits the turn (ambiguity, miss, or stock
// problem); an empty response with a note means the add succeeded.
func (h *CheckoutHandler) addProduct(ctx context.Context, cart contractx.CartMutator, fields contractx.CheckoutFields) (*contractx.HandlerResponse, string, error) {
	result, err := h.resolver.Resolve(ctx, fields.ProductRef)
	if err != nil {
		if contractx.IsValidation(err) {
			return &contractx.HandlerResponse{
				Message: "Which product would you like to add to your order?",
				Status:  contractx.StatusCollectingInfo,
			}, "", nil
		}
		return nil, "", err
	}

	var product contractx.Product
	switch {
	case len(result.Products) == 0:
		return &contractx.HandlerResponse{
			Message: fmt.Sprintf("I couldn't find %q in our catalog. Could you give me the exact product name or id?", fields.ProductRef),
			Status:  contractx.StatusCollectingInfo,
		}, "", nil
	case result.Exact || len(result.Products) == 1:
		product = result.Products[0].Product
	default:
		return &contractx.HandlerResponse{
			Message: fmt.Sprintf("I found a few possible matches for %q: %s. Which one did you mean?",
				fields.ProductRef, clarifyCandidates(result.Products)),
			Status: contractx.StatusCollectingInfo,
		}, "", nil
	}

	quantity := fields.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	line, err := cart.Add(ctx, product.ID, quantity)
	if err != nil {
		return cartAddFailure(product, quantity, err)
	}

	note := fmt.Sprintf("Added %d x %s ($%.2f each) to your cart.", quantity, line.ProductName, line.UnitPrice)
	log.Debug().Str("product_id", line.ProductID).Int("quantity", quantity).Msg("cart line added")
	return nil, note, nil
}

// cartAddFailure maps cart validation errors to explanatory replies; the
// cart is unchanged in all of these cases. Anything unexpected propagates.
func cartAddFailure(product contractx.Product, quantity int, err error) (*contractx.HandlerResponse, string, error) {
	var msg string
	switch {
	case errors.Is(err, contractx.ErrOutOfStock):
		msg = fmt.Sprintf("Sorry, %s is currently out of stock. Would you like something else?", product.Name)
	case errors.Is(err, contractx.ErrInsufficientStock):
		msg = fmt.Sprintf("Sorry, we don't have %d of %s available right now. Could you try a smaller quantity?", quantity, product.Name)
	case errors.Is(err, contractx.ErrProductNotFound):
		msg = fmt.Sprintf("Sorry, %s is no longer available in our catalog.", product.Name)
	case contractx.IsValidation(err):
		msg = fmt.Sprintf("I couldn't add %s to your cart: %v.", product.Name, err)
	default:
		return nil, "", err
	}
	return &contractx.HandlerResponse{
		Message: msg,
		Status:  contractx.StatusCollectingInfo,
	}, "", nil
}

func (h *CheckoutHandler) removeLine(ctx context.Context, cart contractx.CartMutator, fields contractx.CheckoutFields) (contractx.HandlerResponse, error) {
	if fields.ProductRef == "" {
		return contractx.HandlerResponse{
			Message: "Which item would you like me to remove from your cart?",
			Status:  contractx.StatusCollectingInfo,
		}, nil
	}

	productID := fields.ProductRef
	if result, err := h.resolver.Resolve(ctx, fields.ProductRef); err == nil && len(result.Products) == 1 {
		productID = result.Products[0].Product.ID
	}

	if err := cart.Remove(productID); err != nil {
		if errors.Is(err, contractx.ErrLineNotFound) {
			return contractx.HandlerResponse{
				Message: fmt.Sprintf("I don't see %q in your cart.", fields.ProductRef),
				Status:  contractx.StatusCollectingInfo,
			}, nil
		}
		return contractx.HandlerResponse{}, err
	}

	view := cart.View()
	if len(view.Lines) == 0 {
		return contractx.HandlerResponse{
			Message: "Done, your cart is now empty. Would you like to add something else?",
			Status:  contractx.StatusCollectingInfo,
		}, nil
	}
	return contractx.HandlerResponse{
		Message: "Done. " + cartSummary(view),
		Status:  contractx.StatusCollectingInfo,
	}, nil
}

// commit runs the two-phase order pipeline for an explicit confirmation.
func (h *CheckoutHandler) commit(ctx context.Context, cart contractx.CartMutator, customer contractx.Customer) (contractx.HandlerResponse, error) {
	receipt, err := h.pipeline.CreateOrder(ctx, cart, customer)
	if err == nil {
		return contractx.HandlerResponse{
			Message: fmt.Sprintf("Your order %s is confirmed! Total: $%.2f. A confirmation will be sent to %s. Thank you for shopping with us!",
				receipt.OrderID, receipt.Total, customer.Email),
			Status: contractx.StatusCompleted,
		}, nil
	}

	var stockChanged *contractx.StockChangedError
	switch {
	case errors.As(err, &stockChanged):
		return contractx.HandlerResponse{
			Message: fmt.Sprintf("Unfortunately stock changed while you were deciding: %s no longer available in the requested quantity. Please adjust your cart and try again.",
				strings.Join(stockChanged.ProductIDs, ", ")),
			Status: contractx.StatusCollectingInfo,
		}, nil
	case errors.Is(err, contractx.ErrInvalidCustomerInfo):
		return contractx.HandlerResponse{
			Message: fmt.Sprintf("I couldn't place the order: %v. Could you double-check that information?", err),
			Status:  contractx.StatusCollectingInfo,
		}, nil
	case errors.Is(err, contractx.ErrEmptyCart):
		return contractx.HandlerResponse{
			Message: "Your cart is empty. Which product would you like to buy?",
			Status:  contractx.StatusCollectingInfo,
		}, nil
	case errors.Is(err, contractx.ErrStorage):
		log.Error().Err(err).Msg("order commit failed")
		return contractx.HandlerResponse{
			Message: "Something went wrong while saving your order, so nothing was charged. Your cart is untouched; please try confirming again in a moment.",
			Status:  contractx.StatusFailed,
		}, nil
	}
	return contractx.HandlerResponse{}, err
}

// missingCustomerFields names the still-unknown customer fields, joined for
// direct use in a question. Empty means all fields are present.
func missingCustomerFields(c contractx.Customer) string {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "shipping address")
	}
	return joinNames(missing)
}

func cartSummary(view contractx.CartView) string {
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for _, l := range view.Lines {
		fmt.Fprintf(&b, "  - %d x %s @ $%.2f = $%.2f\n", l.Quantity, l.ProductName, l.UnitPrice, l.Subtotal())
	}
	fmt.Fprintf(&b, "Total: $%.2f", view.Total)
	return b.String()
}

func orderSummary(view contractx.CartView, customer contractx.Customer) string {
	var b strings.Builder
	b.WriteString("Here's your order summary:\n")
	for _, l := range view.Lines {
		fmt.Fprintf(&b, "  - %d x %s @ $%.2f = $%.2f\n", l.Quantity, l.ProductName, l.UnitPrice, l.Subtotal())
	}
	fmt.Fprintf(&b, "Total: $%.2f\n", view.Total)
	fmt.Fprintf(&b, "Ship to: %s, %s (%s)\n", customer.Name, customer.Address, customer.Email)
	b.WriteString("Shall I place the order?")
	return b.String()
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
