// Package network tracks connectivity. The cache and prefetch layers
// only poll the boolean; the UI layer can subscribe to changes.
package network

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const defaultProbeURL = "https://openlibrary.org"

// Monitor holds the current online state. It starts online; a probe or
// an explicit SetOnline adjusts it.
type Monitor struct {
	online   atomic.Bool
	probeURL string
	client   *http.Client

	mu   sync.Mutex
	subs []chan bool
}

// NewMonitor creates a Monitor probing probeURL. An empty probeURL uses
// the OpenLibrary origin.
func NewMonitor(probeURL string) *Monitor {
	if probeURL == "" {
		probeURL = defaultProbeURL
	}
	m := &Monitor{
		probeURL: probeURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	m.online.Store(true)
	return m
}

// Online reports the last known connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline records a connectivity change and notifies subscribers.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	m.mu.Lock()
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe returns a channel that receives connectivity changes. Slow
// receivers miss intermediate flips rather than blocking the monitor.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Probe performs one connectivity check and updates the state.
func (m *Monitor) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.SetOnline(false)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.SetOnline(false)
		return false
	}
	resp.Body.Close()
	m.SetOnline(true)
	return true
}

// Watch probes on a ticker until ctx is done.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
