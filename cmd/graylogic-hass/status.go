package main

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hass/internal/instance"
	"github.com/nerrad567/gray-logic-hass/internal/metrics"
)

// stateDisabled labels instances that are switched off.
const stateDisabled = "disabled"

// statusPublisher announces a server's connection state (retained MQTT).
type statusPublisher interface {
	PublishServerStatus(serverID, state string) error
}

// connectionRecorder keeps connection state history.
type connectionRecorder interface {
	RecordConnection(serverID, state string)
}

// statusLogger is the subset of the logger the watcher uses.
type statusLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// statusWatcher samples the registry and reports connection state changes.
// publisher and history are optional.
type statusWatcher struct {
	registry  *instance.Registry
	metrics   *metrics.Metrics
	publisher statusPublisher
	history   connectionRecorder
	logger    statusLogger

	mu   sync.Mutex
	last map[string]string
}

func newStatusWatcher(registry *instance.Registry, m *metrics.Metrics, logger statusLogger) *statusWatcher {
	return &statusWatcher{
		registry: registry,
		metrics:  m,
		logger:   logger,
		last:     make(map[string]string),
	}
}

// run checks immediately, then every interval until ctx is done.
func (w *statusWatcher) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// forget drops the known states so the next check reports every server
// again. Used after the broker reconnects.
func (w *statusWatcher) forget() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.last)
}

func (w *statusWatcher) check() {
	w.mu.Lock()
	defer w.mu.Unlock()

	counts := make(map[string]int)
	seen := make(map[string]bool)

	for _, st := range w.registry.Statuses() {
		state := st.State
		if !st.Enabled {
			state = stateDisabled
		}
		counts[state]++
		seen[st.ID] = true

		if prev, ok := w.last[st.ID]; ok && prev == state {
			continue
		}
		w.last[st.ID] = state
		w.logger.Info("server state", "server", st.ID, "state", state)

		if w.publisher != nil {
			if err := w.publisher.PublishServerStatus(st.ID, state); err != nil {
				w.logger.Warn("publishing server state failed", "server", st.ID, "error", err)
			}
		}
		if w.history != nil {
			w.history.RecordConnection(st.ID, state)
		}
	}

	for id := range w.last {
		if !seen[id] {
			delete(w.last, id)
		}
	}

	w.metrics.SetInstanceStates(counts)
}
