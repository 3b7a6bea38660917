package domain

import (
	"strings"
	"time"
)

// Channel identifies the originating channel of a verification request.
type Channel string

const (
	ChannelExtension Channel = "extension"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelTelegram  Channel = "telegram"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelExtension, ChannelWhatsApp, ChannelTelegram:
		return true
	}
	return false
}

// VerifyRequest is the canonical verification request every channel
// adapter normalizes into.
type VerifyRequest struct {
	Text            string
	Links           []string
	UserID          string
	Channel         Channel
	SourceMessageID string // platform message id; empty on the extension path
}

// Empty reports whether the request carries no verifiable content.
// A request with neither text (after trimming) nor links must never
// reach the verification agent.
func (r *VerifyRequest) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && len(r.Links) == 0
}

// InboundEnvelope wraps a raw channel payload for dispatch. It is
// transient: created on arrival, discarded once dispatch terminates.
type InboundEnvelope struct {
	ID         string
	Channel    Channel
	Payload    []byte
	ReceivedAt time.Time
}
