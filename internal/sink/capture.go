package sink

import (
	"context"
	"sync"

	"factrelay/internal/domain"
)

// Capture is the per-request sink for the synchronous extension path:
// delivery means handing the formatted body back to the pending HTTP
// handler. One Capture serves exactly one request.
type Capture struct {
	mu  sync.Mutex
	msg *domain.OutboundMessage
}

func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Deliver(ctx context.Context, msg domain.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msg = &msg
	return nil
}

// Message returns the captured reply, or nil if dispatch never reached
// delivery.
func (c *Capture) Message() *domain.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msg
}
