package instance

import (
	"testing"

	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/config"
)

func TestFromConfig(t *testing.T) {
	no := false
	servers := []config.ServerConfig{
		{ID: "home", Name: "Home", Kind: "websocket", BaseURL: "http://ha:8123", AccessToken: "tok"},
		{ID: "cabin", Name: "Cabin", Kind: "statestream", CacheJSON: &no, Enabled: &no},
		{ID: "shed", Kind: "statestream", StatestreamBase: "shed/ha"},
	}

	got := FromConfig(servers, "homeassistant")
	if len(got) != 3 {
		t.Fatalf("len(FromConfig()) = %d, want 3", len(got))
	}

	home := got[0]
	if home.Kind != KindWebSocket || home.BaseURL != "http://ha:8123" || home.AccessToken != "tok" {
		t.Errorf("home = %+v", home)
	}
	if !home.CacheJSON || !home.Enabled {
		t.Errorf("home defaults: cache_json=%v enabled=%v, want true", home.CacheJSON, home.Enabled)
	}
	if home.TopicBase != "" {
		t.Errorf("home.TopicBase = %q, want empty for websocket", home.TopicBase)
	}

	cabin := got[1]
	if cabin.TopicBase != "homeassistant" {
		t.Errorf("cabin.TopicBase = %q, want the default", cabin.TopicBase)
	}
	if cabin.CacheJSON || cabin.Enabled {
		t.Errorf("cabin: cache_json=%v enabled=%v, want false", cabin.CacheJSON, cabin.Enabled)
	}

	shed := got[2]
	if shed.TopicBase != "shed/ha" {
		t.Errorf("shed.TopicBase = %q, want shed/ha", shed.TopicBase)
	}
	if shed.Name != "shed" {
		t.Errorf("shed.Name = %q, want the id", shed.Name)
	}
}

func TestFromConfig_GeneratesStableID(t *testing.T) {
	servers := []config.ServerConfig{{Name: "Home", Kind: "websocket", BaseURL: "http://ha:8123"}}

	first := FromConfig(servers, "homeassistant")[0]
	second := FromConfig(servers, "homeassistant")[0]

	if first.ID == "" {
		t.Fatal("no id generated")
	}
	if first.ID != second.ID {
		t.Errorf("ids differ across calls: %s != %s", first.ID, second.ID)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestStableID(t *testing.T) {
	a := StableID("Home", "http://ha:8123")
	if a != StableID("Home", "http://ha:8123") {
		t.Error("StableID() is not deterministic")
	}
	if a == StableID("Home", "http://other:8123") {
		t.Error("StableID() ignores the location")
	}
	if a == StableID("Office", "http://ha:8123") {
		t.Error("StableID() ignores the name")
	}
	if len(a) != 36 {
		t.Errorf("StableID() = %q, want a UUID string", a)
	}
}
