// Package adapter converts each channel's wire format into the canonical
// verification request and renders verdicts back in the channel's native
// reply shape.
package adapter

// unavailableText is the single user-facing message for exhausted agent
// failures. Every channel renders the same text so retried deliveries
// never produce divergent replies.
const unavailableText = "⚠️ Verification is temporarily unavailable. Please try again in a few minutes."
