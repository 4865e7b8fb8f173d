package memory

import (
	"context"
	"sync"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/google/uuid"
)

// Order is an order recorded by Orders.
type Order struct {
	ID          string
	CustomerRef string
	Items       []domain.LineItem
}

// Orders implements ports.OrderCreator and ports.ClaimCreator by recording calls.
// Fail, when set, is returned by every call; tests use it to inject collaborator errors.
type Orders struct {
	mu     sync.Mutex
	orders []Order
	claims []domain.Claim
	Fail   error
}

// NewOrders creates an empty recorder.
func NewOrders() *Orders {
	return &Orders{}
}

func (o *Orders) CreateOrder(ctx context.Context, customerRef string, items []domain.LineItem) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail != nil {
		return "", o.Fail
	}
	id := uuid.NewString()
	o.orders = append(o.orders, Order{ID: id, CustomerRef: customerRef, Items: append([]domain.LineItem(nil), items...)})
	return id, nil
}

func (o *Orders) CreateClaim(ctx context.Context, claim domain.Claim) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail != nil {
		return "", o.Fail
	}
	o.claims = append(o.claims, claim)
	return uuid.NewString(), nil
}

// Orders returns the recorded orders.
func (o *Orders) Orders() []Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Order(nil), o.orders...)
}

// Claims returns the recorded claims.
func (o *Orders) Claims() []domain.Claim {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Claim(nil), o.claims...)
}
