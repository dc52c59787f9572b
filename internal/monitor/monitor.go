// Package monitor samples the game container's state so the admin API
// can report whether the server is actually up.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

type StatusRuntime interface {
	Status(ctx context.Context, name string) (string, error)
}

type Monitor struct {
	runtime   StatusRuntime
	container string
	interval  time.Duration

	mu     sync.RWMutex
	latest string
}

func New(runtime StatusRuntime, container string) *Monitor {
	return &Monitor{
		runtime:   runtime,
		container: container,
		interval:  10 * time.Second,
		latest:    "unknown",
	}
}

func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.sample(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample(ctx)
			}
		}
	}()
	log.Printf("monitor: watching container %s (%s interval)", m.container, m.interval)
}

func (m *Monitor) sample(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := m.runtime.Status(sctx, m.container)
	if err != nil {
		log.Printf("monitor: inspect %s: %v", m.container, err)
	}

	m.mu.Lock()
	if status != m.latest {
		log.Printf("monitor: container %s is now %s", m.container, status)
	}
	m.latest = status
	m.mu.Unlock()
}

// Latest returns the most recently sampled container state.
func (m *Monitor) Latest() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
