package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-hass/internal/homeassistant"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hass/internal/instance"
	"github.com/nerrad567/gray-logic-hass/internal/metrics"
)

// source is a data source owned by the service.
type source interface {
	homeassistant.DataSource
	Observe(fn homeassistant.StateObserver)
	Close() error
}

// stateRecorder keeps entity state history.
type stateRecorder interface {
	RecordState(serverID, entityID string, state map[string]any)
}

// sourceDeps holds what startSources needs. mqtt and history may be nil.
type sourceDeps struct {
	cfg      *config.Config
	registry *instance.Registry
	mqtt     *mqtt.Client
	metrics  *metrics.Metrics
	history  stateRecorder
	logger   *logging.Logger
}

// startSources connects every enabled instance and attaches its data source
// to the registry. On error, sources already started are closed.
func startSources(ctx context.Context, deps sourceDeps) (map[string]source, error) {
	sources := make(map[string]source)

	for _, inst := range deps.registry.List() {
		if !inst.Enabled {
			deps.logger.Info("server disabled", "server", inst.ID)
			continue
		}

		src, err := newSource(ctx, inst, deps)
		if err != nil {
			closeSources(deps.registry, sources, deps.logger)
			return nil, fmt.Errorf("server %s: %w", inst.ID, err)
		}

		serverID := inst.ID
		src.Observe(func(entityID string, state map[string]any) {
			deps.metrics.RecordStateChange(serverID)
			if deps.history != nil {
				deps.history.RecordState(serverID, entityID, state)
			}
		})

		if err := deps.registry.Attach(inst.ID, src); err != nil {
			_ = src.Close() //nolint:errcheck // already failing
			closeSources(deps.registry, sources, deps.logger)
			return nil, fmt.Errorf("server %s: %w", inst.ID, err)
		}
		sources[inst.ID] = src
	}

	return sources, nil
}

// newSource creates and starts the data source for one instance.
func newSource(ctx context.Context, inst instance.Instance, deps sourceDeps) (source, error) {
	logger := deps.logger.Component("homeassistant").With("server", inst.ID)

	switch inst.Kind {
	case instance.KindWebSocket:
		ws := deps.cfg.WebSocket
		client, err := homeassistant.NewClient(homeassistant.ClientConfig{
			BaseURL:          inst.BaseURL,
			AccessToken:      inst.AccessToken,
			Path:             ws.Path,
			MaxMessageSize:   int64(ws.MaxMessageSize),
			PingInterval:     time.Duration(ws.PingInterval) * time.Second,
			RequestTimeout:   time.Duration(ws.RequestTimeout) * time.Second,
			ReconnectInitial: time.Duration(ws.Reconnect.InitialDelay) * time.Second,
			ReconnectMax:     time.Duration(ws.Reconnect.MaxDelay) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("creating websocket client: %w", err)
		}
		client.SetLogger(logger)
		client.Start(ctx)
		logger.Info("websocket client started", "base_url", inst.BaseURL)
		return client, nil

	case instance.KindStatestream:
		if deps.mqtt == nil {
			return nil, fmt.Errorf("statestream needs an MQTT connection")
		}
		stream := homeassistant.NewStatestream(deps.mqtt, inst.TopicBase, byte(deps.cfg.MQTT.QoS)) //nolint:gosec // qos validated 0-2
		stream.SetLogger(logger)
		if err := stream.Start(); err != nil {
			return nil, err
		}
		return stream, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", instance.ErrInvalidInstance, inst.Kind)
	}
}

// closeSources detaches and closes every source.
func closeSources(registry *instance.Registry, sources map[string]source, logger *logging.Logger) {
	for id, src := range sources {
		registry.Detach(id)
		if err := src.Close(); err != nil {
			logger.Error("error closing server connection", "server", id, "error", err)
		}
	}
}
