// Package metrics is a lightweight Prometheus-exposition collector for
// factrelay. It renders text/plain output without pulling in the heavy
// prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide metrics collector.
var Collector = NewCollector()

type MetricsCollector struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	startTime  time.Time
}

func NewCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		startTime:  time.Now(),
	}
}

func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name   string
	help   string
	labels string

	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// Counter returns or creates the counter for name+labels.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := name + "{" + labels + "}"
	if ctr, ok := c.counters[key]; ok {
		return ctr
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	c.counters[key] = ctr
	return ctr
}

// Gauge returns or creates the gauge for name+labels.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := name + "{" + labels + "}"
	if g, ok := c.gauges[key]; ok {
		return g
	}
	g := &Gauge{name: name, help: help, labels: labels}
	c.gauges[key] = g
	return g
}

// Histogram returns or creates the histogram for name+labels.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := name + "{" + labels + "}"
	if h, ok := c.histograms[key]; ok {
		return h
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	hb := make([]histBucket, len(sorted))
	for i, b := range sorted {
		hb[i] = histBucket{le: b}
	}
	h := &Histogram{name: name, help: help, labels: labels, buckets: hb}
	c.histograms[key] = h
	return h
}

// Handler renders the metrics in Prometheus text exposition format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder
		fmt.Fprintf(&sb, "# HELP factrelay_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(&sb, "# TYPE factrelay_uptime_seconds gauge\n")
		fmt.Fprintf(&sb, "factrelay_uptime_seconds %d\n\n", int64(c.Uptime().Seconds()))

		// Snapshot the metric pointers under the lock: registration of a
		// first-seen label set may run concurrently with a scrape.
		c.mu.Lock()
		counters := snapshotSorted(c.counters)
		gauges := snapshotSorted(c.gauges)
		histograms := snapshotSorted(c.histograms)
		c.mu.Unlock()

		helpWritten := make(map[string]bool)
		for _, ctr := range counters {
			if !helpWritten[ctr.name] {
				fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s counter\n", ctr.name, ctr.help, ctr.name)
				helpWritten[ctr.name] = true
			}
			writeSample(&sb, ctr.name, ctr.labels, fmt.Sprintf("%d", ctr.Value()))
		}

		helpWritten = make(map[string]bool)
		for _, g := range gauges {
			if !helpWritten[g.name] {
				fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name)
				helpWritten[g.name] = true
			}
			writeSample(&sb, g.name, g.labels, fmt.Sprintf("%d", g.Value()))
		}

		for _, h := range histograms {
			h.mu.Lock()
			fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
			for _, b := range h.buckets {
				labels := fmt.Sprintf(`le="%g"`, b.le)
				if h.labels != "" {
					labels = h.labels + "," + labels
				}
				writeSample(&sb, h.name+"_bucket", labels, fmt.Sprintf("%d", b.count))
			}
			writeSample(&sb, h.name+"_count", h.labels, fmt.Sprintf("%d", h.count))
			writeSample(&sb, h.name+"_sum", h.labels, fmt.Sprintf("%f", h.sum))
			h.mu.Unlock()
		}

		fmt.Fprint(w, sb.String())
	}
}

func writeSample(sb *strings.Builder, name, labels, value string) {
	if labels != "" {
		fmt.Fprintf(sb, "%s{%s} %s\n", name, labels, value)
	} else {
		fmt.Fprintf(sb, "%s %s\n", name, value)
	}
}

// snapshotSorted copies the map values in key order. The caller must hold
// the collector lock.
func snapshotSorted[M ~map[string]V, V any](m M) []V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
