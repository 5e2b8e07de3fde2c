package api

import (
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-hass/internal/homeassistant"
	"github.com/nerrad567/gray-logic-hass/internal/instance"
)

// haServer returns a router with one connected server "home" holding two
// lights.
func haServer(t *testing.T) (http.Handler, *fakeSource, *instance.Registry) {
	t.Helper()

	srv, reg := testServer(t, serverOptions{instances: []instance.Instance{wsInstance("home")}})

	src := newFakeSource()
	src.SetState("light.kitchen", map[string]any{
		"state":      "on",
		"attributes": map[string]any{"brightness": float64(200)},
	})
	src.SetState("light.hall", map[string]any{
		"state":      "off",
		"attributes": map[string]any{"brightness": float64(10)},
	})
	src.ReplaceServices(map[string]any{"light": map[string]any{"turn_on": map[string]any{}}})
	if err := reg.Attach("home", src); err != nil {
		t.Fatal(err)
	}
	return srv.buildRouter(), src, reg
}

func TestEntities(t *testing.T) {
	router, _, _ := haServer(t)

	w := do(t, router, http.MethodGet, "/homeassistant/entities/home", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got, want := decode[[]string](t, w), []string{"light.hall", "light.kitchen"}; !reflect.DeepEqual(got, want) {
		t.Errorf("entities = %v, want %v", got, want)
	}
}

func TestStates(t *testing.T) {
	router, _, _ := haServer(t)

	w := do(t, router, http.MethodGet, "/homeassistant/states/home", "")
	states := decode[map[string]map[string]any](t, w)
	if len(states) != 2 || states["light.kitchen"]["state"] != "on" {
		t.Errorf("states = %v", states)
	}
}

func TestServices(t *testing.T) {
	router, _, _ := haServer(t)

	w := do(t, router, http.MethodGet, "/homeassistant/services/home", "")
	services := decode[map[string]any](t, w)
	if _, ok := services["light"]; !ok {
		t.Errorf("services = %v", services)
	}
}

func TestProperties(t *testing.T) {
	router, _, _ := haServer(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"collection", "", []string{"state", "attributes.brightness"}},
		{"single with term", "?entityId=light.kitchen&term=bright", []string{"attributes.brightness"}},
		{"single without term", "?entityId=light.kitchen", []string{"state", "attributes.brightness"}},
		{"single with no match", "?entityId=light.kitchen&term=zzz", []string{}},
		{"unknown entity ignores term", "?entityId=light.nope&term=zzz", []string{"state", "attributes.brightness"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/homeassistant/properties/home"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if got := decode[[]string](t, w); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("properties = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTags(t *testing.T) {
	router, src, _ := haServer(t)
	src.ReplaceTags([]homeassistant.RawTag{{TagID: "t1", Name: "Front Door", DeviceID: "d1"}})
	src.nextTags = []homeassistant.RawTag{{TagID: "t2", Name: "Back Door"}}

	w := do(t, router, http.MethodGet, "/homeassistant/tags/home", "")
	if got, want := decode[[]homeassistant.Tag](t, w), []homeassistant.Tag{{ID: "t1", Name: "Front Door"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
	if src.refreshCount() != 0 {
		t.Error("tags refreshed without update")
	}

	for _, q := range []string{"?update=false", "?update=nonsense"} {
		do(t, router, http.MethodGet, "/homeassistant/tags/home"+q, "")
	}
	if src.refreshCount() != 0 {
		t.Errorf("refreshes = %d after falsy update values", src.refreshCount())
	}

	w = do(t, router, http.MethodGet, "/homeassistant/tags/home?update=1", "")
	if got, want := decode[[]homeassistant.Tag](t, w), []homeassistant.Tag{{ID: "t2", Name: "Back Door"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("tags after update = %v, want %v", got, want)
	}
	if src.refreshCount() != 1 {
		t.Errorf("refreshes = %d, want 1", src.refreshCount())
	}
}

func TestTags_RefreshFailureServesCache(t *testing.T) {
	router, src, _ := haServer(t)
	src.ReplaceTags([]homeassistant.RawTag{{TagID: "t1", Name: "Front Door"}})
	src.refreshErr = errors.New("timeout")

	w := do(t, router, http.MethodGet, "/homeassistant/tags/home?update=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[[]homeassistant.Tag](t, w); len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("tags = %v", got)
	}
}

func TestTags_EmptyIsArray(t *testing.T) {
	router, _, _ := haServer(t)

	w := do(t, router, http.MethodGet, "/homeassistant/tags/home", "")
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestUnavailable(t *testing.T) {
	off := wsInstance("off")
	off.Enabled = false

	srv, reg := testServer(t, serverOptions{instances: []instance.Instance{
		wsInstance("home"), wsInstance("down"), wsInstance("bare"), off,
	}})
	router := srv.buildRouter()

	if err := reg.Attach("home", newFakeSource()); err != nil {
		t.Fatal(err)
	}
	down := newFakeSource()
	down.SetConnectionState(homeassistant.StateDisconnected)
	if err := reg.Attach("down", down); err != nil {
		t.Fatal(err)
	}

	for _, route := range []string{"entities", "states", "services", "properties", "tags"} {
		for _, suffix := range []string{"", "/missing", "/down", "/bare", "/off"} {
			path := "/homeassistant/" + route + suffix
			t.Run(path, func(t *testing.T) {
				w := do(t, router, http.MethodGet, path, "")
				if w.Code != http.StatusServiceUnavailable {
					t.Fatalf("status = %d, want 503", w.Code)
				}
				body := decode[map[string]string](t, w)
				if len(body) != 1 || body["error"] != testNoServer {
					t.Errorf("body = %v", body)
				}
			})
		}

		if w := do(t, router, http.MethodGet, "/homeassistant/"+route+"/home", ""); w.Code != http.StatusOK {
			t.Errorf("%s/home status = %d, want 200", route, w.Code)
		}
	}
}

func TestVersion(t *testing.T) {
	srv, reg := testServer(t, serverOptions{instances: []instance.Instance{
		wsInstance("home"), wsInstance("plain"), wsInstance("down"),
	}})
	router := srv.buildRouter()

	home := newFakeSource()
	home.SetIntegrationVersion("1.2.0")
	if err := reg.Attach("home", home); err != nil {
		t.Fatal(err)
	}
	if err := reg.Attach("plain", newFakeSource()); err != nil {
		t.Fatal(err)
	}
	down := newFakeSource()
	down.SetIntegrationVersion("1.1.0")
	down.SetConnectionState(homeassistant.StateDisconnected)
	if err := reg.Attach("down", down); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		want any
	}{
		{"home", "1.2.0"},
		{"down", "1.1.0"},
		{"plain", float64(0)},
		{"missing", float64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/homeassistant/version/"+tt.id, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if got := decode[map[string]any](t, w)["version"]; got != tt.want {
				t.Errorf("version = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNoCacheHeaders(t *testing.T) {
	fresh := wsInstance("fresh")
	fresh.CacheJSON = false

	srv, reg := testServer(t, serverOptions{instances: []instance.Instance{wsInstance("cached"), fresh}})
	router := srv.buildRouter()
	for _, id := range []string{"cached", "fresh"} {
		if err := reg.Attach(id, newFakeSource()); err != nil {
			t.Fatal(err)
		}
	}

	w := do(t, router, http.MethodGet, "/homeassistant/states/fresh", "")
	want := map[string]string{
		"Surrogate-Control": "no-store",
		"Cache-Control":     "no-store, no-cache, must-revalidate, proxy-revalidate",
		"Pragma":            "no-cache",
		"Expires":           "0",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}

	// Headers are set even when the answer is a 503.
	if _, ok := reg.Detach("fresh"); !ok {
		t.Fatal("fresh was not attached")
	}
	w = do(t, router, http.MethodGet, "/homeassistant/tags/fresh", "")
	if w.Code != http.StatusServiceUnavailable || w.Header().Get("Pragma") != "no-cache" {
		t.Errorf("503 response: status %d, Pragma %q", w.Code, w.Header().Get("Pragma"))
	}

	w = do(t, router, http.MethodGet, "/homeassistant/states/cached", "")
	for k := range want {
		if got := w.Header().Get(k); got != "" {
			t.Errorf("cached server sent %s = %q", k, got)
		}
	}
}
