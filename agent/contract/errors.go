package contract

import (
	"errors"
	"fmt"
	"strings"
)

// Transient errors: may be retried with backoff; on exhaustion they surface
// as a generic try-again reply and leave state and cart unchanged.
var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrStorage         = errors.New("order storage failed")
)

// Validation errors: terminal for the current turn, never retried, surfaced
// as explanatory replies with no mutation beyond what already succeeded.
var (
	ErrValidation          = errors.New("validation failed")
	ErrProductNotFound     = errors.New("product not found")
	ErrOutOfStock          = errors.New("product is out of stock")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrLineNotFound        = errors.New("cart line not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidCustomerInfo = errors.New("invalid customer info")
)

// StockChangedError reports cart lines whose products no longer pass stock
// re-validation at order time. The cart is left intact so the user can
// adjust and retry.
type StockChangedError struct {
	ProductIDs []string
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("stock changed for: %s", strings.Join(e.ProductIDs, ", "))
}

// IsTransient reports whether err belongs to the retryable family.
func IsTransient(err error) bool {
	return errors.Is(err, ErrModelInvoke) ||
		errors.Is(err, ErrSchemaViolation) ||
		errors.Is(err, ErrStorage)
}

// IsValidation reports whether err is a terminal validation failure.
func IsValidation(err error) bool {
	var stockChanged *StockChangedError
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrLineNotFound) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidCustomerInfo) ||
		errors.As(err, &stockChanged)
}
