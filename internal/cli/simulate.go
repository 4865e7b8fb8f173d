package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/comanda/internal/presentation/tui"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/google/uuid"
)

// SimulateOptions configures a console conversation.
type SimulateOptions struct {
	// Phone is the conversation key the simulated user writes from.
	Phone  string
	In     io.Reader
	Out    io.Writer
	Prompt bool
}

// Simulate runs a chat against app from a line-oriented reader until EOF,
// "/quit" or ctx cancellation. Lines starting with "/" are operator commands.
func Simulate(ctx context.Context, app *App, opts SimulateOptions) error {
	if opts.Phone == "" {
		opts.Phone = "5490000000000"
	}
	printSystemMessage(opts.Out, "Chatting as %s. Commands: /session /pause /resolve /reset /reload /quit", opts.Phone)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(opts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
			return
		}
		readErr <- io.EOF
	}()

	for {
		if opts.Prompt {
			fmt.Fprint(opts.Out, tui.User("> "))
		}
		var line string
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if isInterrupted(err) {
				return nil
			}
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			done, err := command(ctx, app, opts, line)
			if err != nil {
				printSystemMessage(opts.Out, "%v", err)
			}
			if done {
				return nil
			}
			continue
		}

		msg := domain.InboundMessage{
			ID:        uuid.NewString(),
			From:      opts.Phone,
			Text:      line,
			Timestamp: time.Now(),
		}
		if err := app.Engine.HandleInbound(ctx, msg); err != nil {
			printSystemMessage(opts.Out, "message rejected: %v", err)
		}
	}
}

func command(ctx context.Context, app *App, opts SimulateOptions, line string) (bool, error) {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true, nil
	case "/session":
		sess, err := app.Engine.Session(ctx, opts.Phone)
		if errors.Is(err, domain.ErrSessionNotFound) {
			printSystemMessage(opts.Out, "No session yet.")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		data, err := json.MarshalIndent(sess, "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Fprintln(opts.Out, string(data))
	case "/pause":
		if err := app.Engine.Pause(ctx, opts.Phone); err != nil {
			return false, err
		}
		printSystemMessage(opts.Out, "Session paused, an operator has the conversation.")
	case "/resolve":
		if err := app.Engine.ResolveHandover(ctx, opts.Phone); err != nil {
			return false, err
		}
		printSystemMessage(opts.Out, "Handover resolved.")
	case "/reset":
		if err := app.Engine.Reset(ctx, opts.Phone); err != nil {
			return false, err
		}
		printSystemMessage(opts.Out, "Session removed.")
	case "/reload":
		n, err := app.ReloadFlows(ctx)
		if err != nil {
			return false, err
		}
		printSystemMessage(opts.Out, "%d flows reloaded.", n)
	default:
		return false, fmt.Errorf("unknown command %s", line)
	}
	return false, nil
}
