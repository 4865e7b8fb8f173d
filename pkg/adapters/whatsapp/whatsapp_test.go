package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/comanda/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_SendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	s := NewSender(Config{BaseURL: srv.URL, Token: "secret"})
	id, err := s.Send(context.Background(), domain.TextMessage("5491100", "hola"))
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "5491100", got["to"])
	assert.Equal(t, "hola", got["text"].(map[string]any)["body"])
}

func TestSender_SendDocument(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewSender(Config{BaseURL: srv.URL})
	_, err := s.Send(context.Background(), domain.MediaMessage("1", "https://cdn.test/docs/order-1.pdf", "Tu pedido"))
	require.NoError(t, err)

	assert.Equal(t, "document", got["type"])
	doc := got["document"].(map[string]any)
	assert.Equal(t, "https://cdn.test/docs/order-1.pdf", doc["link"])
	assert.Equal(t, "Tu pedido", doc["caption"])
	assert.Equal(t, "order-1.pdf", doc["filename"])
}

func TestSender_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"recipient not allowed"}}`))
	}))
	defer srv.Close()

	s := NewSender(Config{BaseURL: srv.URL, Timeout: time.Second})
	_, err := s.Send(context.Background(), domain.TextMessage("1", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipient not allowed")
}

func TestSender_Typing(t *testing.T) {
	s := NewSender(Config{BaseURL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, s.SendTyping(context.Background(), "1"), ErrTypingUnsupported)

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = r.URL.Path == "/typing"
	}))
	defer srv.Close()

	s = NewSender(Config{BaseURL: srv.URL, TypingPath: "/typing"})
	require.NoError(t, s.SendTyping(context.Background(), "1"))
	assert.True(t, called)
}

const webhookBody = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "123",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [
          {"from": "5491100", "id": "wamid.a", "timestamp": "1700000000", "type": "text", "text": {"body": "hola"}},
          {"from": "5491100", "id": "wamid.b", "timestamp": "1700000001", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "1", "title": "Pedir"}}},
          {"from": "5491100", "id": "wamid.c", "timestamp": "1700000002", "type": "image",
           "image": {"id": "media-9", "caption": "comprobante"}},
          {"from": "5491100", "id": "wamid.d", "timestamp": "1700000003", "type": "reaction"}
        ],
        "statuses": [{"id": "wamid.x", "status": "delivered"}]
      }
    }]
  }]
}`

func TestParseWebhook(t *testing.T) {
	msgs, err := ParseWebhook([]byte(webhookBody))
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "wamid.a", msgs[0].ID)
	assert.Equal(t, "5491100", msgs[0].From)
	assert.Equal(t, "hola", msgs[0].Text)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msgs[0].Timestamp)

	assert.Equal(t, "Pedir", msgs[1].Text)

	assert.Equal(t, MediaScheme+"media-9", msgs[2].MediaURL)
	assert.Equal(t, "comprobante", msgs[2].Text)
}

func TestParseWebhook_StatusOnly(t *testing.T) {
	msgs, err := ParseWebhook([]byte(`{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`))
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(webhookBody)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, header, "app-secret"))
	assert.False(t, VerifySignature(body, header, "other"))
	assert.False(t, VerifySignature(body, "md5=abc", "app-secret"))
}
