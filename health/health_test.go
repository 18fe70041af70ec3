package health

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReporter struct {
	mu     sync.Mutex
	status Status
}

func (f *fakeReporter) Health() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeReporter) set(s Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func TestStatusConstructors(t *testing.T) {
	h := NewHealthy("q", "ok")
	assert.True(t, h.IsHealthy())
	assert.True(t, h.Healthy)
	assert.False(t, h.Timestamp.IsZero())

	d := NewDegraded("q", "full")
	assert.True(t, d.IsDegraded())
	assert.False(t, d.Healthy)

	u := NewUnhealthy("q", "closed")
	assert.True(t, u.IsUnhealthy())
	assert.False(t, u.Healthy)
}

func TestStatus_WithSubStatusDoesNotShare(t *testing.T) {
	base := NewHealthy("system", "ok").WithSubStatus(NewHealthy("a", "ok"))
	left := base.WithSubStatus(NewHealthy("b", "ok"))
	right := base.WithSubStatus(NewDegraded("c", "slow"))

	require.Len(t, left.SubStatuses, 2)
	require.Len(t, right.SubStatuses, 2)
	assert.Equal(t, "b", left.SubStatuses[1].Component)
	assert.Equal(t, "c", right.SubStatuses[1].Component)
	assert.Len(t, base.SubStatuses, 1)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		subs     []Status
		expected string
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StatusHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StatusDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StatusUnhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg := Aggregate("system", tc.subs)
			assert.Equal(t, tc.expected, agg.Status)
			assert.Len(t, agg.SubStatuses, len(tc.subs))
		})
	}
}

func TestMonitor_UpdateAndTrack(t *testing.T) {
	m := NewMonitor()
	rep := &fakeReporter{status: NewHealthy("ignored", "ok")}

	m.Update("static", NewDegraded("other-name", "slow"))
	m.Track("queue", rep)
	assert.Equal(t, 2, m.Count())

	s, ok := m.Get("static")
	require.True(t, ok)
	assert.Equal(t, "static", s.Component, "monitor name wins over status name")
	assert.True(t, s.IsDegraded())

	s, ok = m.Get("queue")
	require.True(t, ok)
	assert.Equal(t, "queue", s.Component)
	assert.True(t, s.IsHealthy())

	rep.set(NewUnhealthy("queue", "closed"))
	assert.True(t, m.AggregateHealth("system").IsUnhealthy())

	all := m.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "queue", all[0].Component)
	assert.Equal(t, "static", all[1].Component)

	m.Remove("queue")
	_, ok = m.Get("queue")
	assert.False(t, ok)
	assert.True(t, m.AggregateHealth("system").IsDegraded())
}

func TestMonitor_UpdateReplacesReporter(t *testing.T) {
	m := NewMonitor()
	m.Track("queue", &fakeReporter{status: NewUnhealthy("queue", "closed")})
	m.Update("queue", NewHealthy("queue", "replaced"))

	assert.Equal(t, 1, m.Count())
	s, ok := m.Get("queue")
	require.True(t, ok)
	assert.True(t, s.IsHealthy())
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Update("shared", NewHealthy("shared", "ok"))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.AggregateHealth("system")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Count())
}
