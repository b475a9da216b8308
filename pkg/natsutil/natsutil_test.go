package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*natsHeaderCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("expected empty on nil header, got %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Errorf("expected nil keys, got %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("unexpected value %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Errorf("expected 1 key, got %v", keys)
	}
}
