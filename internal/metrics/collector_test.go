package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounterRegistration(t *testing.T) {
	c := NewCollector()
	a := c.Counter("test_total", "help", `channel="x"`)
	b := c.Counter("test_total", "help", `channel="x"`)
	if a != b {
		t.Error("same name+labels must return the same counter")
	}
	other := c.Counter("test_total", "help", `channel="y"`)
	if a == other {
		t.Error("different labels must return distinct counters")
	}

	a.Inc()
	a.Add(2)
	if a.Value() != 3 {
		t.Errorf("expected 3, got %d", a.Value())
	}
	if other.Value() != 0 {
		t.Errorf("label isolation broken: %d", other.Value())
	}
}

func TestGauge(t *testing.T) {
	c := NewCollector()
	g := c.Gauge("inflight", "help", "")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("expected 1, got %d", g.Value())
	}
	g.Set(10)
	if g.Value() != 10 {
		t.Errorf("expected 10, got %d", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	c := NewCollector()
	h := c.Histogram("latency_seconds", "help", "", []float64{1, 10, 100})
	for _, v := range []float64{0.5, 5, 50, 500} {
		h.Observe(v)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count != 4 {
		t.Errorf("expected count 4, got %d", h.count)
	}
	// Buckets are cumulative.
	want := []int64{1, 2, 3}
	for i, b := range h.buckets {
		if b.count != want[i] {
			t.Errorf("bucket le=%g: expected %d, got %d", b.le, want[i], b.count)
		}
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector()
	c.Counter("factrelay_requests_total", "Requests by channel", `channel="telegram"`).Inc()
	c.Gauge("factrelay_inflight", "In-flight dispatches", "").Set(2)
	c.Histogram("factrelay_agent_seconds", "Agent latency", "", []float64{1, 10}).Observe(3)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"factrelay_uptime_seconds",
		`factrelay_requests_total{channel="telegram"} 1`,
		"factrelay_inflight 2",
		`factrelay_agent_seconds_bucket{le="10"} 1`,
		"factrelay_agent_seconds_count 1",
		"# TYPE factrelay_requests_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q in:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type: %q", ct)
	}
}

// First-seen label sets register metrics during live traffic, so scrapes
// run concurrently with map inserts.
func TestHandlerConcurrentRegistration(t *testing.T) {
	c := NewCollector()
	handler := c.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Counter("race_total", "help", fmt.Sprintf(`channel="c%d-%d"`, n, j)).Inc()
				c.Gauge("race_gauge", "help", fmt.Sprintf(`channel="c%d-%d"`, n, j)).Inc()
				c.Histogram("race_hist", "help", fmt.Sprintf(`channel="c%d-%d"`, n, j), []float64{1}).Observe(0.5)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		}
	}()
	wg.Wait()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `race_total{channel="c0-0"} 1`) {
		t.Error("registered counter missing from exposition")
	}
}
