package metrics

import "fmt"

// Pre-defined metrics used across the dispatch pipeline. Channel- and
// state-labelled variants are fetched on demand; the collector hands back
// the same instance for the same label set.

var (
	SuppressedTotal = Collector.Counter("factrelay_suppressed_total",
		"Duplicate webhook deliveries suppressed by the idempotency guard", "")
	InFlight = Collector.Gauge("factrelay_inflight_requests",
		"Requests currently in dispatch", "")
	AgentLatency = Collector.Histogram("factrelay_agent_latency_seconds",
		"Verification agent call latency in seconds", "",
		[]float64{1, 5, 15, 30, 60, 120, 300})
)

// RequestsTotal returns the inbound request counter for one channel.
func RequestsTotal(channel string) *Counter {
	return Collector.Counter("factrelay_requests_total",
		"Total inbound verification requests",
		fmt.Sprintf(`channel=%q`, channel))
}

// OutcomesTotal returns the terminal-state counter for one outcome kind.
func OutcomesTotal(state string) *Counter {
	return Collector.Counter("factrelay_outcomes_total",
		"Terminal dispatch outcomes",
		fmt.Sprintf(`state=%q`, state))
}
