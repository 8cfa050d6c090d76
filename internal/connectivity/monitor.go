// Package connectivity decides whether the remote service is reachable and
// broadcasts changes to subscribers.
package connectivity

import (
	"fmt"
	"sync"

	"staffsync/internal/config"
	"staffsync/internal/staff"
)

// Monitor holds the current online state and notifies subscribers when it
// changes. Each subscriber has a one-slot buffer holding the latest state,
// so a slow subscriber never blocks Set and never sees a stale value last.
// This implementation is safe for concurrent use.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
}

var _ staff.Connectivity = (*Monitor)(nil)

// NewMonitor creates a monitor in the given initial state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online, subs: make(map[int]chan bool)}
}

// NewMonitorFromConfig creates a monitor for the configured mode. In probe
// mode it starts offline until the first successful probe.
func NewMonitorFromConfig(cfg config.ConnectivityConfig) (*Monitor, error) {
	switch cfg.Mode {
	case "online":
		return NewMonitor(true), nil
	case "offline", "probe":
		return NewMonitor(false), nil
	default:
		return nil, fmt.Errorf("unknown connectivity mode: %s", cfg.Mode)
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the state and notifies subscribers if it changed.
// It reports whether the state changed.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return false
	}
	m.online = online

	for _, ch := range m.subs {
		// Replace whatever the subscriber has not consumed yet.
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	return true
}

// Subscribe returns a channel receiving every state change and a function
// that ends the subscription and closes the channel.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
