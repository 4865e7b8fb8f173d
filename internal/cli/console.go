package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/comanda/internal/presentation/tui"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/google/uuid"
)

// ConsoleSender prints outbound messages as a chat transcript.
type ConsoleSender struct {
	mu     sync.Mutex
	out    io.Writer
	render func(string) (string, error)
}

// NewConsoleSender writes to out; render formats message text (see tui.NewRenderer).
func NewConsoleSender(out io.Writer, render func(string) (string, error)) *ConsoleSender {
	if render == nil {
		render = func(s string) (string, error) { return s, nil }
	}
	return &ConsoleSender{out: out, render: render}
}

func (c *ConsoleSender) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Media != nil {
		fmt.Fprintf(c.out, "%s 📎 %s", tui.Bot("bot:"), msg.Media.URL)
		if msg.Media.Caption != "" {
			fmt.Fprintf(c.out, " (%s)", msg.Media.Caption)
		}
		fmt.Fprintln(c.out)
		return uuid.NewString(), nil
	}
	text, err := c.render(msg.Text)
	if err != nil {
		text = msg.Text
	}
	fmt.Fprintf(c.out, "%s %s", tui.Bot("bot:"), text)
	if len(text) == 0 || text[len(text)-1] != '\n' {
		fmt.Fprintln(c.out)
	}
	return uuid.NewString(), nil
}

func (c *ConsoleSender) SendTyping(ctx context.Context, to string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, tui.System("bot está escribiendo…"))
	return nil
}
