package discovery

import (
	"reflect"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{
		"base_url=http://192.168.1.10:8123",
		"version=2026.10.0",
		"requires_api_password",
		"=orphan",
		"uuid=a=b",
	})

	want := map[string]string{
		"base_url":              "http://192.168.1.10:8123",
		"version":               "2026.10.0",
		"requires_api_password": "",
		"uuid":                  "a=b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseTXT() = %v, want %v", got, want)
	}
}

func TestUnescapeInstance(t *testing.T) {
	tests := map[string]string{
		"Home":            "Home",
		`My\ Home`:        "My Home",
		`Dots\.And\\Back`: `Dots.And\Back`,
	}

	for in, want := range tests {
		if got := unescapeInstance(in); got != want {
			t.Errorf("unescapeInstance(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromEntry(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: `My\ Hub`},
		Text:          []string{"base_url=http://host1"},
	}

	got := fromEntry(entry).Option()
	want := Option{Label: "My Hub (http://host1)", Value: "http://host1"}
	if got != want {
		t.Errorf("fromEntry().Option() = %+v, want %+v", got, want)
	}
}
