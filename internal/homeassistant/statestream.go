package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/mqtt"
)

// Top-level keys of a Home Assistant state object. Every other statestream
// attribute belongs under "attributes".
var topLevelKeys = map[string]bool{
	"state":        true,
	"last_changed": true,
	"last_updated": true,
}

// Subscriber is the part of the MQTT client a Statestream needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Statestream is a DataSource fed by Home Assistant's mqtt_statestream
// integration, which publishes one retained topic per entity attribute:
//
//	<base>/<domain>/<object_id>/state
//	<base>/<domain>/<object_id>/<attribute>
//
// It has no service catalogue, tags or integration version.
type Statestream struct {
	*Store

	sub    Subscriber
	base   string
	qos    byte
	logger Logger
}

// Ensure Statestream implements DataSource.
var _ DataSource = (*Statestream)(nil)

// NewStatestream creates a statestream source below base topic.
func NewStatestream(sub Subscriber, base string, qos byte) *Statestream {
	return &Statestream{
		Store:  NewStore(),
		sub:    sub,
		base:   strings.TrimSuffix(base, "/"),
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the statestream.
func (s *Statestream) SetLogger(logger Logger) {
	s.logger = logger
}

// Topic returns the subscription pattern.
func (s *Statestream) Topic() string {
	return mqtt.Topics{}.StatestreamAll(s.base)
}

// Start subscribes to the statestream topics. Retained messages replay the
// current state of every entity.
func (s *Statestream) Start() error {
	if err := s.sub.Subscribe(s.Topic(), s.qos, s.handle); err != nil {
		s.SetConnectionState(StateError)
		return fmt.Errorf("subscribing to %s: %w", s.Topic(), err)
	}
	s.SetConnectionState(StateConnected)
	s.logger.Info("statestream subscribed", "topic", s.Topic())
	return nil
}

// Close unsubscribes.
func (s *Statestream) Close() error {
	s.SetConnectionState(StateDisconnected)
	if !s.sub.IsConnected() {
		return nil
	}
	if err := s.sub.Unsubscribe(s.Topic()); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", s.Topic(), err)
	}
	return nil
}

// Connected reports whether the subscription is active and the broker reachable.
func (s *Statestream) Connected() bool {
	return s.Store.Connected() && s.sub.IsConnected()
}

// ConnectionState reports disconnected while the broker is unreachable.
func (s *Statestream) ConnectionState() ConnectionState {
	state := s.Store.ConnectionState()
	if state == StateConnected && !s.sub.IsConnected() {
		return StateDisconnected
	}
	return state
}

// RefreshTags is a no-op: statestream does not carry tags.
func (s *Statestream) RefreshTags(context.Context) error {
	return nil
}

// handle applies one statestream message to the store.
func (s *Statestream) handle(topic string, payload []byte) error {
	entityID, attr, ok := s.parseTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected statestream topic %q", topic)
	}

	// An empty payload clears the topic. JSON null is a value.
	remove := len(payload) == 0
	var value any
	if !remove {
		value = decodeStatestreamValue(attr, payload)
	}

	s.UpdateState(entityID, func(state map[string]any) map[string]any {
		if state == nil {
			if remove {
				return nil
			}
			state = map[string]any{"entity_id": entityID}
		}

		if topLevelKeys[attr] {
			setOrDelete(state, attr, value, remove)
		} else {
			attrs, _ := state["attributes"].(map[string]any) //nolint:errcheck // absent or wrong type both mean start fresh
			if attrs == nil {
				attrs = make(map[string]any)
			}
			setOrDelete(attrs, attr, value, remove)
			if len(attrs) == 0 {
				delete(state, "attributes")
			} else {
				state["attributes"] = attrs
			}
		}

		if len(state) == 1 {
			// Only entity_id left: the entity is gone.
			return nil
		}
		return state
	})

	return nil
}

// parseTopic splits <base>/<domain>/<object_id>/<attribute>.
func (s *Statestream) parseTopic(topic string) (entityID, attr string, ok bool) {
	rest, found := strings.CutPrefix(topic, s.base+"/")
	if !found {
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0] + "." + parts[1], parts[2], true
}

// decodeStatestreamValue decodes an attribute payload. State is published
// as a bare string; attributes are JSON, falling back to the raw text.
func decodeStatestreamValue(attr string, payload []byte) any {
	if attr == "state" {
		return string(payload)
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return string(payload)
	}
	return v
}

func setOrDelete(m map[string]any, key string, value any, remove bool) {
	if remove {
		delete(m, key)
		return
	}
	m[key] = value
}
