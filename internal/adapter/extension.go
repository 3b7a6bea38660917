package adapter

import (
	"encoding/json"
	"strings"

	"factrelay/internal/domain"
)

// Extension adapts the browser-extension/frontend JSON call. The inbound
// payload is already structured; parsing is mostly validation.
type Extension struct{}

func NewExtension() *Extension { return &Extension{} }

func (e *Extension) Channel() domain.Channel { return domain.ChannelExtension }

type extensionPayload struct {
	Text  string   `json:"text"`
	Links []string `json:"links"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel string `json:"channel"`
}

func (e *Extension) ParseInbound(payload []byte) (*domain.VerifyRequest, error) {
	var p extensionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, &domain.ParseError{Kind: domain.ParseMalformedPayload, Reason: err.Error()}
	}
	if strings.TrimSpace(p.User.ID) == "" {
		return nil, &domain.ParseError{Kind: domain.ParseMalformedPayload, Reason: "user.id is required"}
	}

	links := make([]string, 0, len(p.Links))
	for _, l := range p.Links {
		if strings.TrimSpace(l) != "" {
			links = append(links, l)
		}
	}

	req := &domain.VerifyRequest{
		Text:    p.Text,
		Links:   links,
		UserID:  p.User.ID,
		Channel: domain.ChannelExtension,
		// No SourceMessageID: the extension path is synchronous
		// request/response and is never redelivered.
	}
	if req.Empty() {
		return nil, &domain.ParseError{Kind: domain.ParseEmptyContent, Reason: "text and links are both empty"}
	}
	return req, nil
}

// extensionResponse is the synchronous HTTP response body.
type extensionResponse struct {
	Status            string          `json:"status"`
	FormattedResponse string          `json:"formatted_response"`
	Result            *domain.Verdict `json:"result,omitempty"`
	Error             string          `json:"error,omitempty"`
}

func (e *Extension) FormatOutbound(req *domain.VerifyRequest, v *domain.Verdict) domain.OutboundMessage {
	body, _ := json.Marshal(extensionResponse{
		Status:            string(v.Status),
		FormattedResponse: v.FormattedText,
		Result:            v,
	})
	return domain.OutboundMessage{
		Channel: domain.ChannelExtension,
		To:      req.UserID,
		Body:    body,
	}
}

func (e *Extension) FormatFailure(req *domain.VerifyRequest, err error) domain.OutboundMessage {
	body, _ := json.Marshal(extensionResponse{
		Status:            "error",
		FormattedResponse: unavailableText,
		Error:             err.Error(),
	})
	return domain.OutboundMessage{
		Channel: domain.ChannelExtension,
		To:      req.UserID,
		Body:    body,
	}
}
