package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("finbot_requests_total", "Total requests")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("expected 3, got %d", c.Value())
	}

	g := r.Gauge("finbot_inflight", "In-flight requests")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("expected 1, got %d", g.Value())
	}
}

func TestCounter_SameNameSameInstance(t *testing.T) {
	r := New()
	a := r.Counter("x_total", "")
	b := r.Counter("x_total", "")
	if a != b {
		t.Error("same name should return the same counter")
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("finbot_chat_total", "outcome", "filtered")
	if got != `finbot_chat_total{outcome="filtered"}` {
		t.Errorf("unexpected name: %s", got)
	}
	// Odd kv count falls back to the bare name.
	if got := WithLabels("x", "k"); got != "x" {
		t.Errorf("unexpected name: %s", got)
	}
}

func TestHistogram_Render(t *testing.T) {
	r := New()
	h := r.Histogram("finbot_chat_duration_seconds", "Chat latency", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	if !strings.Contains(out, "# TYPE finbot_chat_duration_seconds histogram") {
		t.Errorf("missing TYPE line:\n%s", out)
	}
	if !strings.Contains(out, `finbot_chat_duration_seconds_bucket{le="+Inf"} 3`) {
		t.Errorf("missing +Inf bucket:\n%s", out)
	}
	if !strings.Contains(out, "finbot_chat_duration_seconds_count 3") {
		t.Errorf("missing count:\n%s", out)
	}
}

func TestRender_LabeledCounters(t *testing.T) {
	r := New()
	r.Counter(WithLabels("finbot_chat_total", "outcome", "success"), "Chat outcomes").Inc()
	r.Counter(WithLabels("finbot_chat_total", "outcome", "filtered"), "Chat outcomes").Add(2)

	out := r.Render()
	if !strings.Contains(out, `finbot_chat_total{outcome="success"} 1`) {
		t.Errorf("missing success line:\n%s", out)
	}
	if !strings.Contains(out, `finbot_chat_total{outcome="filtered"} 2`) {
		t.Errorf("missing filtered line:\n%s", out)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("up", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "up 1") {
		t.Errorf("missing metric in body:\n%s", rec.Body.String())
	}
}
