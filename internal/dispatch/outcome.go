package dispatch

import (
	"time"

	"factrelay/internal/domain"
)

// State is a terminal dispatch state. Intermediate states (parsed,
// deduplicated, verifying, formatted) are implicit in control flow and
// never observed from outside.
type State string

const (
	StateDelivered      State = "delivered"
	StateRejected       State = "rejected"
	StateSuppressed     State = "suppressed"
	StateAgentFailed    State = "agent_failed"
	StateDeliveryFailed State = "delivery_failed"
)

// Outcome records how one envelope's dispatch terminated.
type Outcome struct {
	State   State
	Channel domain.Channel
	Elapsed time.Duration
	Err     error
}

func (o Outcome) Terminal() bool { return o.State != "" }
