// Package dedup suppresses duplicate webhook deliveries. Both WhatsApp
// and Telegram redeliver webhooks for tens of minutes when they miss an
// ack, and a naive handler answers every redelivery with a fresh reply.
package dedup

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"factrelay/internal/domain"
)

// Guard tracks recently processed inbound message ids inside a bounded
// time window. It is the only shared mutable state in the process.
type Guard struct {
	seen   *gocache.Cache
	logger *slog.Logger
}

func NewGuard(window, sweep time.Duration, logger *slog.Logger) *Guard {
	if window <= 0 {
		window = time.Hour
	}
	if sweep <= 0 {
		sweep = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		seen:   gocache.New(window, sweep),
		logger: logger,
	}
}

// ShouldProcess performs an atomic check-and-insert keyed by
// (channel, sourceMessageID). The first sighting within the retention
// window wins; every concurrent or later redelivery is suppressed.
// Requests without a source id (the extension path) always pass.
func (g *Guard) ShouldProcess(ch domain.Channel, sourceMessageID string) bool {
	if sourceMessageID == "" {
		return true
	}
	key := string(ch) + ":" + sourceMessageID

	// Add is a single locked check-and-insert; it fails when the key is
	// already present and unexpired. Never split this into a Get + Set.
	if err := g.seen.Add(key, time.Now(), gocache.DefaultExpiration); err != nil {
		g.logger.Info("duplicate delivery suppressed", "channel", ch, "message_id", sourceMessageID)
		return false
	}
	return true
}

// Len reports the number of tracked ids, including not-yet-swept expired
// entries.
func (g *Guard) Len() int {
	return g.seen.ItemCount()
}
