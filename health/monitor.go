package health

import (
	"sort"
	"sync"
	"time"
)

// Reporter is anything that can describe its own health, such as a queue.
type Reporter interface {
	Health() Status
}

// Monitor tracks the health of named components.
// Static statuses are set with Update; Reporters are polled on every read.
type Monitor struct {
	mu        sync.RWMutex
	statuses  map[string]Status
	reporters map[string]Reporter
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses:  make(map[string]Status),
		reporters: make(map[string]Reporter),
	}
}

// Update stores a fixed status for name, replacing any reporter.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	delete(m.reporters, name)
	m.statuses[name] = status
}

// Track registers a reporter that is asked for its status on each read.
func (m *Monitor) Track(name string, reporter Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	m.reporters[name] = reporter
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	reporter, tracked := m.reporters[name]
	status, exists := m.statuses[name]
	m.mu.RUnlock()

	if tracked {
		status = reporter.Health()
		status.Component = name
		return status, true
	}
	return status, exists
}

// GetAll returns the current status of every component, ordered by name.
func (m *Monitor) GetAll() []Status {
	m.mu.RLock()
	names := make([]string, 0, len(m.statuses)+len(m.reporters))
	for name := range m.statuses {
		names = append(names, name)
	}
	for name := range m.reporters {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)

	result := make([]Status, 0, len(names))
	for _, name := range names {
		if status, ok := m.Get(name); ok {
			result = append(result, status)
		}
	}
	return result
}

// Remove stops monitoring a component
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.reporters, name)
}

// AggregateHealth returns an aggregated health status for the entire system
func (m *Monitor) AggregateHealth(systemName string) Status {
	return Aggregate(systemName, m.GetAll())
}

// Count returns the number of components being monitored
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.statuses) + len(m.reporters)
}
