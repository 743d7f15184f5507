package order

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/google/uuid"
)

// newOrderID generates an order identifier in ORD-XXXXXXXX form.
func newOrderID() string {
	id := uuid.New()
	return "ORD-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// MemoryStore is an in-process order store. It backs the CLI when no
// database DSN is configured, and tests.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]contractx.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]contractx.Order)}
}

var _ contractx.OrderStore = (*MemoryStore)(nil)

func (s *MemoryStore) Commit(_ context.Context, order contractx.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newOrderID()
	for {
		if _, taken := s.orders[id]; !taken {
			break
		}
		id = newOrderID()
	}
	s.orders[id] = order
	return id, nil
}

// Get returns a committed order by id.
func (s *MemoryStore) Get(orderID string) (contractx.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	return o, ok
}

// Count returns the number of committed orders.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
