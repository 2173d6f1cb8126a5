package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}

	// Should not panic
	m.Counter("test", 1)
	m.Timing("test", time.Second)
}

func TestInMemoryMetrics(t *testing.T) {
	t.Run("Counter with tags", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter("requests", 1, T("method", "GET"))
		m.Counter("requests", 1, T("method", "POST"))
		m.Counter("requests", 1, T("method", "GET"))

		assert.Equal(t, int64(2), m.GetCounter("requests", T("method", "GET")))
		assert.Equal(t, int64(1), m.GetCounter("requests", T("method", "POST")))
	})

	t.Run("Timing summary", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Timing("latency", 10*time.Millisecond)
		m.Timing("latency", 30*time.Millisecond)

		snap := m.Snapshot()
		assert.Equal(t, TimingSummary{Count: 2, TotalMS: 40, MaxMS: 30}, snap.Timings["latency"])
	})

	t.Run("Snapshot is a copy", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter("requests", 1)

		snap := m.Snapshot()
		m.Counter("requests", 1)

		assert.Equal(t, int64(1), snap.Counters["requests"])
		assert.Equal(t, int64(2), m.GetCounter("requests"))
	})
}

func TestFormatKey(t *testing.T) {
	tests := []struct {
		name     string
		tags     []Tag
		expected string
	}{
		{"no tags", nil, "requests"},
		{"single tag", []Tag{T("method", "GET")}, "requests:method=GET"},
		{"sorted tags", []Tag{T("status", "200"), T("method", "GET")}, "requests:method=GET:status=200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatKey("requests", tt.tags))
		})
	}
}

func TestHealthRegistry(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	t.Run("all healthy", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("store", PingChecker("store", HealthStatusUnhealthy, ok))

		h := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusHealthy, h.Status)
		assert.Equal(t, "store connection healthy", h.Checks["store"].Message)
	})

	t.Run("degraded dependency", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("store", PingChecker("store", HealthStatusUnhealthy, ok))
		r.Register("cache", PingChecker("cache", HealthStatusDegraded, down))

		h := r.GetOverallHealth(context.Background())
		assert.Equal(t, HealthStatusDegraded, h.Status)
		assert.Contains(t, h.Checks["cache"].Message, "refused")
		assert.Equal(t, []string{"cache", "store"}, r.Names())
	})

	t.Run("unhealthy wins", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("store", PingChecker("store", HealthStatusUnhealthy, down))
		r.Register("cache", PingChecker("cache", HealthStatusDegraded, down))

		assert.Equal(t, HealthStatusUnhealthy, r.GetOverallHealth(context.Background()).Status)
	})

	t.Run("empty registry is healthy", func(t *testing.T) {
		assert.Equal(t, HealthStatusHealthy, NewHealthRegistry().GetOverallHealth(context.Background()).Status)
	})
}
