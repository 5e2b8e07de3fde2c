package homeassistant

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hass/internal/pathindex"
)

// fakeSubscriber captures the statestream handler.
type fakeSubscriber struct {
	connected    bool
	subscribeErr error
	topic        string
	qos          byte
	handler      mqtt.MessageHandler
	unsubscribed []string
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.topic, f.qos, f.handler = topic, qos, handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	f.unsubscribed = append(f.unsubscribed, topic)
	return nil
}

func (f *fakeSubscriber) IsConnected() bool { return f.connected }

func (f *fakeSubscriber) publish(t *testing.T, topic, payload string) {
	t.Helper()
	if err := f.handler(topic, []byte(payload)); err != nil {
		t.Fatalf("handler(%s) error = %v", topic, err)
	}
}

func startStatestream(t *testing.T) (*Statestream, *fakeSubscriber) {
	t.Helper()

	sub := &fakeSubscriber{connected: true}
	s := NewStatestream(sub, "homeassistant/", 1)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s, sub
}

func TestStatestream_Start(t *testing.T) {
	s, sub := startStatestream(t)

	if sub.topic != "homeassistant/#" || sub.qos != 1 {
		t.Errorf("subscribed to %q qos %d, want homeassistant/# qos 1", sub.topic, sub.qos)
	}
	if !s.Connected() {
		t.Error("Connected() = false after Start")
	}

	sub.connected = false
	if s.Connected() {
		t.Error("Connected() = true while the broker is down")
	}
	if got := s.ConnectionState(); got != StateDisconnected {
		t.Errorf("ConnectionState() = %v while the broker is down, want disconnected", got)
	}
}

func TestStatestream_StartFails(t *testing.T) {
	sub := &fakeSubscriber{subscribeErr: mqtt.ErrNotConnected}
	s := NewStatestream(sub, "homeassistant", 1)

	if err := s.Start(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
	if got := s.ConnectionState(); got != StateError {
		t.Errorf("ConnectionState() = %v, want error", got)
	}
}

func TestStatestream_BuildsStateObjects(t *testing.T) {
	s, sub := startStatestream(t)

	sub.publish(t, "homeassistant/light/kitchen/state", "on")
	sub.publish(t, "homeassistant/light/kitchen/brightness", "200")
	sub.publish(t, "homeassistant/light/kitchen/friendly_name", `"Kitchen"`)
	sub.publish(t, "homeassistant/light/kitchen/effect_list", `["none","rainbow"]`)
	sub.publish(t, "homeassistant/light/kitchen/last_changed", `"2026-10-19T08:00:00+00:00"`)
	sub.publish(t, "homeassistant/sensor/raw/note", "not json")

	got, ok := s.State("light.kitchen")
	if !ok {
		t.Fatal("light.kitchen not found")
	}
	want := map[string]any{
		"entity_id":    "light.kitchen",
		"state":        "on",
		"last_changed": "2026-10-19T08:00:00+00:00",
		"attributes": map[string]any{
			"brightness":    float64(200),
			"friendly_name": "Kitchen",
			"effect_list":   []any{"none", "rainbow"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("State() = %#v\nwant %#v", got, want)
	}

	raw, _ := s.State("sensor.raw")
	if note := raw["attributes"].(map[string]any)["note"]; note != "not json" {
		t.Errorf("note = %#v, want raw text", note)
	}

	if got, want := s.Entities(), []string{"light.kitchen", "sensor.raw"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Entities() = %v, want %v", got, want)
	}
}

func TestStatestream_StateIsNotDecoded(t *testing.T) {
	s, sub := startStatestream(t)

	sub.publish(t, "homeassistant/sensor/temp/state", "21.5")

	st, _ := s.State("sensor.temp")
	if st["state"] != "21.5" {
		t.Errorf("state = %#v, want the string 21.5", st["state"])
	}
}

func TestStatestream_EmptyPayloadRemoves(t *testing.T) {
	s, sub := startStatestream(t)

	sub.publish(t, "homeassistant/switch/pump/state", "on")
	sub.publish(t, "homeassistant/switch/pump/icon", `"mdi:pump"`)

	sub.publish(t, "homeassistant/switch/pump/icon", "")
	st, _ := s.State("switch.pump")
	if _, ok := st["attributes"]; ok {
		t.Errorf("attributes = %v, want removed with the last attribute", st["attributes"])
	}

	sub.publish(t, "homeassistant/switch/pump/state", "")
	if _, ok := s.State("switch.pump"); ok {
		t.Error("entity still present after all topics were cleared")
	}

	// Clearing an unknown entity must not create it.
	sub.publish(t, "homeassistant/switch/ghost/state", "")
	if _, ok := s.State("switch.ghost"); ok {
		t.Error("empty payload created an entity")
	}
}

func TestStatestream_NullIsAValue(t *testing.T) {
	s, sub := startStatestream(t)

	sub.publish(t, "homeassistant/sensor/door/state", "on")
	sub.publish(t, "homeassistant/sensor/door/last_triggered", "null")

	st, _ := s.State("sensor.door")
	attrs, _ := st["attributes"].(map[string]any)
	if v, ok := attrs["last_triggered"]; !ok || v != nil {
		t.Fatalf("attributes = %#v, want last_triggered kept as nil", st["attributes"])
	}

	paths := pathindex.Compute(pathindex.FromRecords(s.States()), pathindex.Options{EntityID: "sensor.door"})
	want := []string{"entity_id", "state", "attributes.last_triggered"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}

	// Only an empty payload removes the attribute.
	sub.publish(t, "homeassistant/sensor/door/last_triggered", "")
	st, _ = s.State("sensor.door")
	if _, ok := st["attributes"]; ok {
		t.Errorf("attributes = %v, want removed", st["attributes"])
	}
}

func TestStatestream_RejectsForeignTopics(t *testing.T) {
	_, sub := startStatestream(t)

	for _, topic := range []string{
		"homeassistant/light/kitchen",
		"homeassistant/light/kitchen/state/extra",
		"homeassistant//kitchen/state",
		"other/light/kitchen/state",
	} {
		if err := sub.handler(topic, []byte("on")); err == nil {
			t.Errorf("handler(%q) error = nil, want rejection", topic)
		}
	}
}

func TestStatestream_NotifiesObservers(t *testing.T) {
	s, sub := startStatestream(t)

	var states []any
	s.Observe(func(_ string, state map[string]any) {
		if state == nil {
			states = append(states, nil)
			return
		}
		states = append(states, state["state"])
	})

	sub.publish(t, "homeassistant/light/hall/state", "on")
	sub.publish(t, "homeassistant/light/hall/state", "")

	if want := []any{"on", nil}; !reflect.DeepEqual(states, want) {
		t.Errorf("observed %v, want %v", states, want)
	}
}

func TestStatestream_NoTagsOrVersion(t *testing.T) {
	s, _ := startStatestream(t)

	if err := s.RefreshTags(context.Background()); err != nil {
		t.Errorf("RefreshTags() error = %v", err)
	}
	if len(s.Tags()) != 0 {
		t.Errorf("Tags() = %v, want empty", s.Tags())
	}
	if s.IntegrationVersion() != "" {
		t.Errorf("IntegrationVersion() = %q, want empty", s.IntegrationVersion())
	}
}

func TestStatestream_Close(t *testing.T) {
	s, sub := startStatestream(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !reflect.DeepEqual(sub.unsubscribed, []string{"homeassistant/#"}) {
		t.Errorf("unsubscribed = %v", sub.unsubscribed)
	}
	if s.Connected() {
		t.Error("Connected() = true after Close")
	}
}
