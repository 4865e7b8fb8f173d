package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/comanda/pkg/domain"
)

// Attention is a recorded operator notification.
type Attention struct {
	Key    string
	Reason string
}

// Outbox implements ports.Sender, ports.TypingNotifier, ports.AttentionNotifier
// and ports.DocumentRenderer by recording everything it is asked to do.
type Outbox struct {
	mu        sync.Mutex
	sent      []domain.OutboundMessage
	typing    []string
	attention []Attention
	// FailSend, when set, is returned by Send.
	FailSend error
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailSend != nil {
		return "", o.FailSend
	}
	o.sent = append(o.sent, msg)
	return fmt.Sprintf("out-%d", len(o.sent)), nil
}

func (o *Outbox) SendTyping(ctx context.Context, to string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typing = append(o.typing, to)
	return nil
}

func (o *Outbox) NotifyAttention(ctx context.Context, key, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attention = append(o.attention, Attention{Key: key, Reason: reason})
}

// Render returns a fake URL naming the template.
func (o *Outbox) Render(ctx context.Context, template string, data map[string]any) (string, error) {
	return "memory://documents/" + template + ".pdf", nil
}

// Sent returns the delivered messages.
func (o *Outbox) Sent() []domain.OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.OutboundMessage(nil), o.sent...)
}

// Texts returns the text of the delivered messages addressed to to.
func (o *Outbox) Texts(to string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, m := range o.sent {
		if m.To == to {
			out = append(out, m.Summary())
		}
	}
	return out
}

// Typing returns the conversations that received a typing indicator.
func (o *Outbox) Typing() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.typing...)
}

// Attention returns the recorded operator notifications.
func (o *Outbox) Attention() []Attention {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Attention(nil), o.attention...)
}

// Reset forgets everything recorded so far.
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent, o.typing, o.attention = nil, nil, nil
}
