package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
)

// nopStore structure
type nopStore struct{}

func (nopStore) Save(ctx context.Context, key string, s *domain.Session) error { return nil }
func (nopStore) Load(ctx context.Context, key string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Delete(ctx context.Context, key string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)   { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("5491100%d", i)
		_ = mgr.Save(ctx, key, domain.NewSession(key, "f", time.Now()))
		_ = mgr.Delete(ctx, key)
	}

	if n := mgr.activeLocks(); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", n)
	}
}
