package domain

import "time"

// InboundMessage is a message received from a remote user.
type InboundMessage struct {
	// ID is the transport message id, used for deduplication.
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	MediaURL  string    `json:"media_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Media is an attachment sent to the user.
type Media struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// OutboundMessage is content the engine asks the transport to deliver.
// Exactly one of Text or Media is set.
type OutboundMessage struct {
	To    string `json:"to"`
	Text  string `json:"text,omitempty"`
	Media *Media `json:"media,omitempty"`
}

// TextMessage builds a text outbound message.
func TextMessage(to, text string) OutboundMessage {
	return OutboundMessage{To: to, Text: text}
}

// MediaMessage builds a media outbound message.
func MediaMessage(to, url, caption string) OutboundMessage {
	return OutboundMessage{To: to, Media: &Media{URL: url, Caption: caption}}
}

// Summary returns a short, printable rendition of the message for history and logs.
func (m OutboundMessage) Summary() string {
	if m.Media != nil {
		if m.Media.Caption != "" {
			return "[media] " + m.Media.Caption
		}
		return "[media] " + m.Media.URL
	}
	return m.Text
}
