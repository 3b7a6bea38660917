package domain

import "fmt"

// ParseErrorKind classifies why an inbound payload could not be
// normalized into a VerifyRequest.
type ParseErrorKind string

const (
	ParseEmptyContent           ParseErrorKind = "empty_content"
	ParseUnsupportedMessageType ParseErrorKind = "unsupported_message_type"
	ParseMalformedPayload       ParseErrorKind = "malformed_payload"
)

type ParseError struct {
	Kind   ParseErrorKind
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// AgentErrorKind classifies a verification agent failure.
type AgentErrorKind string

const (
	AgentTimeout           AgentErrorKind = "timeout"
	AgentMalformedResponse AgentErrorKind = "malformed_response"
	AgentUpstreamRejected  AgentErrorKind = "upstream_rejected"
	AgentUnreachable       AgentErrorKind = "unreachable" // transient retries exhausted
)

type AgentError struct {
	Kind AgentErrorKind
	Err  error
}

func (e *AgentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("agent %s", e.Kind)
	}
	return fmt.Sprintf("agent %s: %v", e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// DeliveryErrorKind classifies an outbound send failure.
type DeliveryErrorKind string

const (
	DeliveryPlatformRejected DeliveryErrorKind = "platform_rejected"
	DeliveryNetworkFailure   DeliveryErrorKind = "network_failure"
)

type DeliveryError struct {
	Kind DeliveryErrorKind
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("delivery %s", e.Kind)
	}
	return fmt.Sprintf("delivery %s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
