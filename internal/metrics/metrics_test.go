package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// scrape returns the exposition text of m.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func assertLine(t *testing.T, text, line string) {
	t.Helper()
	for _, l := range strings.Split(text, "\n") {
		if l == line {
			return
		}
	}
	t.Errorf("exposition has no line %q", line)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordStateChange("home")

	if strings.Contains(scrape(t, b), `graylogic_hass_state_changes_total{server="home"}`) {
		t.Error("metrics leaked between instances")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("/homeassistant/states/{id}", 200, 5*time.Millisecond)
	m.RecordHTTPRequest("/homeassistant/states/{id}", 200, 5*time.Millisecond)
	m.RecordHTTPRequest("/homeassistant/states/{id}", 503, time.Millisecond)

	text := scrape(t, m)
	assertLine(t, text, `graylogic_hass_http_requests_total{route="/homeassistant/states/{id}",status="200"} 2`)
	assertLine(t, text, `graylogic_hass_http_requests_total{route="/homeassistant/states/{id}",status="503"} 1`)
	assertLine(t, text, `graylogic_hass_http_request_duration_seconds_count{route="/homeassistant/states/{id}"} 3`)
}

func TestRecordCounters(t *testing.T) {
	m := New()
	m.RecordStateChange("home")
	m.RecordUnavailable("cabin")
	m.RecordTagRefresh("home", nil)
	m.RecordTagRefresh("home", errors.New("boom"))

	text := scrape(t, m)
	assertLine(t, text, `graylogic_hass_state_changes_total{server="home"} 1`)
	assertLine(t, text, `graylogic_hass_unavailable_total{server="cabin"} 1`)
	assertLine(t, text, `graylogic_hass_tag_refreshes_total{server="home",status="success"} 1`)
	assertLine(t, text, `graylogic_hass_tag_refreshes_total{server="home",status="error"} 1`)
}

func TestRecordDiscovery(t *testing.T) {
	m := New()
	m.RecordDiscovery(3, nil)
	m.RecordDiscovery(0, errors.New("no multicast"))

	text := scrape(t, m)
	assertLine(t, text, `graylogic_hass_discoveries_total{status="success"} 1`)
	assertLine(t, text, `graylogic_hass_discoveries_total{status="error"} 1`)
	assertLine(t, text, `graylogic_hass_discovered_servers 3`)
}

func TestSetInstanceStates(t *testing.T) {
	m := New()
	m.SetInstanceStates(map[string]int{"connected": 2, "error": 1})
	m.SetInstanceStates(map[string]int{"connected": 3})

	text := scrape(t, m)
	assertLine(t, text, `graylogic_hass_instances{state="connected"} 3`)
	if strings.Contains(text, `graylogic_hass_instances{state="error"}`) {
		t.Error("stale state label kept after SetInstanceStates")
	}
}

func TestUptimeAndRuntimeCollectors(t *testing.T) {
	text := scrape(t, New())

	for _, name := range []string{"graylogic_hass_uptime_seconds", "go_goroutines"} {
		if !strings.Contains(text, name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
