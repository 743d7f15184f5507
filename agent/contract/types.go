package contract

import "time"

// Intent is the routing label produced by the classifier for a user turn.
type Intent string

const (
	IntentProduct  Intent = "product_intent"
	IntentPurchase Intent = "purchase_intent"
)

// HandlerStatus tags a handler response so the orchestrator can drive the
// session state machine without inspecting the reply text.
type HandlerStatus string

const (
	// Checkout handler statuses.
	StatusCollectingInfo    HandlerStatus = "collecting_info"
	StatusConfirming        HandlerStatus = "confirming"
	StatusCompleted         HandlerStatus = "completed"
	StatusFailed            HandlerStatus = "failed"
	StatusTransferRequested HandlerStatus = "transfer_requested"

	// Product-lookup handler status.
	StatusAnswered HandlerStatus = "answered"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// Product is a read-only catalog record.
type Product struct {
	ID          string      `json:"product_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Category    string      `json:"category"`
	StockStatus StockStatus `json:"stock_status"`
	// StockQuantity is an optional numeric bound; nil means unknown.
	StockQuantity *int `json:"stock_quantity,omitempty"`
}

// Available reports whether the product can be ordered at all.
func (p Product) Available() bool {
	return p.StockStatus == StockInStock || p.StockStatus == StockLowStock
}

// ScoredProduct pairs a product with a similarity score from semantic search.
type ScoredProduct struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CartLine is one product entry in a session cart. UnitPrice is a snapshot
// taken when the line was created; merging quantities never refreshes it.
type CartLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

func (l CartLine) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// CartView is a read-only snapshot of cart contents.
type CartView struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}

// HandlerRequest is the uniform input contract for both handlers. Cart is a
// scoped mutation handle valid only for the duration of one Handle call;
// handlers must not retain it.
type HandlerRequest struct {
	Message string
	History []Turn
	Cart    CartMutator
}

// HandlerResponse is the uniform output contract for both handlers.
type HandlerResponse struct {
	Message string
	Status  HandlerStatus
}

// CheckoutAction is what the extractor believes the user is doing this turn.
type CheckoutAction string

const (
	ActionProvideInfo CheckoutAction = "provide_info"
	ActionConfirm     CheckoutAction = "confirm"
	ActionCancel      CheckoutAction = "cancel"
	ActionRemove      CheckoutAction = "remove"
)

// CheckoutFields is the partial structured result of field extraction over
// the current message plus full history. Zero values mean "not mentioned".
type CheckoutFields struct {
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Address    string         `json:"address,omitempty"`
	ProductRef string         `json:"product_reference,omitempty"`
	Quantity   int            `json:"quantity,omitempty"`
	Action     CheckoutAction `json:"action,omitempty"`
}

// Customer is the validated billing identity for an order.
type Customer struct {
	Name    string
	Email   string
	Address string
}

type OrderLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// Order is the immutable record submitted to the order store. The store is
// the source of the generated order identifier.
type Order struct {
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	ShippingAddress string      `json:"shipping_address"`
	Lines           []OrderLine `json:"lines"`
	Total           float64     `json:"total"`
	CreatedAt       time.Time   `json:"created_at"`
}

// ComposerReply is the product handler's LLM-composed answer.
type ComposerReply struct {
	Message string
	// TransferRequested is set when the user expresses purchase intent
	// mid-browsing and should be handed to the checkout handler.
	TransferRequested bool
}
