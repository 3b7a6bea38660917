package domain

import "context"

// OutboundMessage is a channel-native reply, ready for its delivery sink.
// Messaging channels use To/Text; the extension path carries the HTTP
// response body in Body.
type OutboundMessage struct {
	Channel Channel
	To      string
	Text    string
	Body    []byte
}

// Adapter converts between one channel's wire format and the canonical
// request/verdict model. The orchestrator dispatches on the channel tag
// and never inspects raw payloads itself.
type Adapter interface {
	Channel() Channel

	// ParseInbound normalizes a raw payload. A non-nil error is always
	// a *ParseError.
	ParseInbound(payload []byte) (*VerifyRequest, error)

	// FormatOutbound renders a verdict as this channel's reply to req.
	FormatOutbound(req *VerifyRequest, v *Verdict) OutboundMessage

	// FormatFailure renders the "verification unavailable" reply for an
	// agent failure, so callers get exactly one consistent message.
	FormatFailure(req *VerifyRequest, err error) OutboundMessage
}

// Sink performs the actual outbound send for one channel.
type Sink interface {
	Deliver(ctx context.Context, msg OutboundMessage) error
}
