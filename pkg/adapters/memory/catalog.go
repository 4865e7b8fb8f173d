package memory

import (
	"context"
	"sync"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/aretw0/comanda/pkg/orderparse"
)

// Catalog implements ports.Catalog over a fixed product list.
type Catalog struct {
	mu       sync.RWMutex
	products []domain.Product
}

// NewCatalog creates a catalog listing products in the given order.
func NewCatalog(products ...domain.Product) *Catalog {
	return &Catalog{products: products}
}

// SetStock updates the stock of a product. Unknown ids are ignored.
func (c *Catalog) SetStock(productID string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == productID {
			c.products[i].Stock = stock
		}
	}
}

// Lookup matches query by id first, then by fuzzy name.
func (c *Catalog) Lookup(ctx context.Context, query string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == query {
			return &p, nil
		}
	}
	p, ok := orderparse.BestMatch(query, c.products)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *Catalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Product(nil), c.products...), nil
}
