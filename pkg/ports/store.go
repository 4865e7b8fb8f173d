package ports

import (
	"context"

	"github.com/aretw0/comanda/pkg/domain"
)

// SessionStore defines the interface for persisting conversation sessions.
// Implementations need not serialize access themselves; session.Manager does.
type SessionStore interface {
	// Save persists the session under key.
	Save(ctx context.Context, key string, session *domain.Session) error

	// Load retrieves the session for key.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, key string) (*domain.Session, error)

	// Delete removes the session for key. Deleting a missing session is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
