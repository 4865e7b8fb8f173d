package ports

import (
	"context"

	"github.com/aretw0/comanda/pkg/domain"
)

// Sender delivers outbound messages through the messaging transport.
type Sender interface {
	// Send delivers msg to the conversation and returns the transport message id.
	Send(ctx context.Context, msg domain.OutboundMessage) (string, error)
}

// TypingNotifier is implemented by senders that can show a "typing" indicator.
type TypingNotifier interface {
	SendTyping(ctx context.Context, to string) error
}

// Catalog provides read access to the product catalog.
type Catalog interface {
	// Lookup returns the best product match for query, or nil when nothing matches.
	Lookup(ctx context.Context, query string) (*domain.Product, error)

	// ListAll returns the full catalog in display order.
	ListAll(ctx context.Context) ([]domain.Product, error)
}

// OrderCreator commits a set of line items as an order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, customerRef string, items []domain.LineItem) (string, error)
}

// ClaimCreator files a report or complaint.
type ClaimCreator interface {
	CreateClaim(ctx context.Context, claim domain.Claim) (string, error)
}

// DocumentRenderer renders a document from a template name and data, returning its URL.
type DocumentRenderer interface {
	Render(ctx context.Context, template string, data map[string]any) (string, error)
}

// AttentionNotifier alerts human operators that a conversation needs them.
// Implementations must not block; the engine treats it as fire-and-forget.
type AttentionNotifier interface {
	NotifyAttention(ctx context.Context, key, reason string)
}
