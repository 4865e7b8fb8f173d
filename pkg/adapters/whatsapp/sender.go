package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/aretw0/comanda/pkg/domain"
	"github.com/go-resty/resty/v2"
)

// ErrTypingUnsupported is returned by SendTyping when no typing endpoint is configured.
var ErrTypingUnsupported = errors.New("gateway has no typing endpoint")

// Config holds the gateway connection settings.
type Config struct {
	// BaseURL is the messages API root, e.g. https://graph.facebook.com/v21.0/<phone-number-id>.
	BaseURL string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	// TypingPath, when set, is POSTed {"to": ...} to show a typing indicator.
	TypingPath  string        `mapstructure:"typing_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryWaitMS int           `mapstructure:"retry_wait_ms"`
	Debug       bool          `mapstructure:"debug"`
}

// Sender implements ports.Sender and ports.TypingNotifier over HTTP.
type Sender struct {
	cfg    Config
	client *resty.Client
}

// NewSender creates a gateway client.
func NewSender(cfg Config) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWaitMS <= 0 {
		cfg.RetryWaitMS = 200
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
		SetDebug(cfg.Debug).
		SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &Sender{cfg: cfg, client: client}
}

// Send delivers msg and returns the gateway message id.
func (s *Sender) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload(msg)).
		Post("/messages")
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", msg.To, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("send to %s: gateway returned %s: %s", msg.To, resp.Status(), gatewayError(resp.Body()))
	}

	parsed, err := gabs.ParseJSON(resp.Body())
	if err != nil {
		return "", nil
	}
	id, _ := parsed.Path("messages.0.id").Data().(string)
	return id, nil
}

// SendTyping shows a typing indicator when the gateway supports it.
func (s *Sender) SendTyping(ctx context.Context, to string) error {
	if s.cfg.TypingPath == "" {
		return ErrTypingUnsupported
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"to": to}).
		Post(s.cfg.TypingPath)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("typing indicator: gateway returned %s", resp.Status())
	}
	return nil
}

func payload(msg domain.OutboundMessage) map[string]any {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                msg.To,
	}
	if msg.Media == nil {
		body["type"] = "text"
		body["text"] = map[string]any{"body": msg.Text, "preview_url": false}
		return body
	}

	kind := mediaKind(msg.Media.URL)
	media := map[string]any{"link": msg.Media.URL}
	if msg.Media.Caption != "" {
		media["caption"] = msg.Media.Caption
	}
	if kind == "document" {
		media["filename"] = path.Base(msg.Media.URL)
	}
	body["type"] = kind
	body[kind] = media
	return body
}

func mediaKind(url string) string {
	switch strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0])) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return "image"
	case ".mp4", ".3gp":
		return "video"
	case ".mp3", ".ogg", ".aac", ".amr":
		return "audio"
	default:
		return "document"
	}
}

func gatewayError(body []byte) string {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return strings.TrimSpace(string(body))
	}
	if msg, ok := parsed.Path("error.message").Data().(string); ok {
		return msg
	}
	return parsed.String()
}
