package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/aretw0/comanda/pkg/domain"
)

// MediaScheme prefixes media ids received from the gateway.
const MediaScheme = "whatsapp-media://"

var mediaTypes = []string{"image", "document", "audio", "video", "sticker"}

// ParseWebhook extracts the user messages of a webhook notification.
// Status updates and unsupported message types are skipped.
func ParseWebhook(body []byte) ([]domain.InboundMessage, error) {
	root, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	var out []domain.InboundMessage
	for _, entry := range root.S("entry").Children() {
		for _, change := range entry.S("changes").Children() {
			for _, m := range change.Path("value.messages").Children() {
				msg, ok := parseMessage(m)
				if ok {
					out = append(out, msg)
				}
			}
		}
	}
	return out, nil
}

func parseMessage(m *gabs.Container) (domain.InboundMessage, bool) {
	msg := domain.InboundMessage{
		ID:   str(m, "id"),
		From: str(m, "from"),
	}
	if msg.From == "" {
		return msg, false
	}
	if ts, err := strconv.ParseInt(str(m, "timestamp"), 10, 64); err == nil {
		msg.Timestamp = time.Unix(ts, 0).UTC()
	}

	switch typ := str(m, "type"); typ {
	case "text":
		msg.Text = str(m, "text.body")
	case "button":
		msg.Text = str(m, "button.text")
	case "interactive":
		msg.Text = firstNonEmpty(str(m, "interactive.button_reply.title"), str(m, "interactive.list_reply.title"))
	case "location":
		msg.Text = strings.TrimSpace(firstNonEmpty(str(m, "location.address"), str(m, "location.name")))
	default:
		for _, mt := range mediaTypes {
			if typ != mt {
				continue
			}
			id := str(m, mt+".id")
			if id == "" {
				return msg, false
			}
			msg.MediaURL = MediaScheme + id
			msg.Text = str(m, mt+".caption")
			return msg, true
		}
		return msg, false
	}
	return msg, true
}

func str(c *gabs.Container, path string) string {
	v, _ := c.Path(path).Data().(string)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// VerifySignature checks the X-Hub-Signature-256 header ("sha256=<hex>") of a
// webhook body against the app secret.
func VerifySignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
