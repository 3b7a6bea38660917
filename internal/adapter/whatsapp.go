package adapter

import (
	"encoding/json"
	"fmt"

	"factrelay/internal/domain"
)

// WhatsApp adapts the Business Cloud API webhook envelope.
type WhatsApp struct{}

func NewWhatsApp() *WhatsApp { return &WhatsApp{} }

func (w *WhatsApp) Channel() domain.Channel { return domain.ChannelWhatsApp }

// --- WhatsApp webhook payload types ---

type waPayload struct {
	Object string    `json:"object"`
	Entry  []waEntry `json:"entry"`
}

type waEntry struct {
	ID      string     `json:"id"`
	Changes []waChange `json:"changes"`
}

type waChange struct {
	Value waValue `json:"value"`
	Field string  `json:"field"`
}

type waValue struct {
	MessagingProduct string      `json:"messaging_product"`
	Messages         []waMessage `json:"messages"`
}

type waMessage struct {
	From string  `json:"from"`
	ID   string  `json:"id"`
	Type string  `json:"type"`
	Text *waText `json:"text,omitempty"`
}

type waText struct {
	Body string `json:"body"`
}

// ParseInbound extracts the first message object from the envelope.
// Status-only deliveries (read receipts etc.) carry no messages and are
// rejected as malformed; the webhook handler acks and drops them.
func (w *WhatsApp) ParseInbound(payload []byte) (*domain.VerifyRequest, error) {
	var p waPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, &domain.ParseError{Kind: domain.ParseMalformedPayload, Reason: err.Error()}
	}

	var msg *waMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 {
				msg = &change.Value.Messages[0]
				break
			}
		}
		if msg != nil {
			break
		}
	}
	if msg == nil {
		return nil, &domain.ParseError{Kind: domain.ParseMalformedPayload, Reason: "envelope contains no messages"}
	}
	if msg.Type != "text" || msg.Text == nil {
		return nil, &domain.ParseError{
			Kind:   domain.ParseUnsupportedMessageType,
			Reason: fmt.Sprintf("message type %q is not supported", msg.Type),
		}
	}

	req := &domain.VerifyRequest{
		Text:            msg.Text.Body,
		UserID:          msg.From,
		Channel:         domain.ChannelWhatsApp,
		SourceMessageID: msg.ID,
	}
	if req.Empty() {
		return nil, &domain.ParseError{Kind: domain.ParseEmptyContent, Reason: "message body is empty"}
	}
	return req, nil
}

func (w *WhatsApp) FormatOutbound(req *domain.VerifyRequest, v *domain.Verdict) domain.OutboundMessage {
	return domain.OutboundMessage{
		Channel: domain.ChannelWhatsApp,
		To:      req.UserID,
		Text:    v.FormattedText,
	}
}

func (w *WhatsApp) FormatFailure(req *domain.VerifyRequest, err error) domain.OutboundMessage {
	return domain.OutboundMessage{
		Channel: domain.ChannelWhatsApp,
		To:      req.UserID,
		Text:    unavailableText,
	}
}
