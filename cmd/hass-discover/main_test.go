package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/nerrad567/gray-logic-hass/internal/discovery"
)

type fakeBrowser struct {
	ads []discovery.Advertisement
	err error

	service, domain string
}

func (f *fakeBrowser) Browse(ctx context.Context, service, domain string, out chan<- discovery.Advertisement) error {
	f.service, f.domain = service, domain
	if f.err != nil {
		return f.err
	}
	for _, ad := range f.ads {
		select {
		case out <- ad:
		case <-ctx.Done():
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

func plainOutput(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func twoServers() *fakeBrowser {
	return &fakeBrowser{ads: []discovery.Advertisement{
		{Name: "Home", Text: map[string]string{"base_url": "http://home:8123"}},
		{Text: map[string]string{"internal_url": "http://lab:8123"}},
	}}
}

func TestRun_Text(t *testing.T) {
	plainOutput(t)
	var out bytes.Buffer

	if err := run(context.Background(), []string{"-window", "20ms"}, &out, twoServers()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	want := "Home (http://home:8123)  http://home:8123\nhttp://lab:8123  http://lab:8123\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRun_JSON(t *testing.T) {
	var out bytes.Buffer

	if err := run(context.Background(), []string{"-window", "20ms", "-json"}, &out, twoServers()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := strings.Join(strings.Fields(out.String()), "")
	want := `[{"label":"Home(http://home:8123)","value":"http://home:8123"},{"label":"http://lab:8123","value":"http://lab:8123"}]`
	if got != want {
		t.Errorf("output = %s, want %s", got, want)
	}
}

func TestRun_NoneFound(t *testing.T) {
	plainOutput(t)
	var out bytes.Buffer

	if err := run(context.Background(), []string{"-window", "20ms"}, &out, &fakeBrowser{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "no Home Assistant servers found") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := run(context.Background(), []string{"-window", "20ms", "-json"}, &out, &fakeBrowser{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("JSON output = %q, want []", out.String())
	}
}

func TestRun_Flags(t *testing.T) {
	b := &fakeBrowser{}
	args := []string{"-window", "20ms", "-service", "_hass._tcp", "-domain", "lan."}

	if err := run(context.Background(), args, &bytes.Buffer{}, b); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if b.service != "_hass._tcp" || b.domain != "lan." {
		t.Errorf("browsed %q in %q", b.service, b.domain)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		browser *fakeBrowser
		wantErr error
	}{
		{"help", []string{"-h"}, &fakeBrowser{}, flag.ErrHelp},
		{"browse failure", []string{"-window", "20ms"}, &fakeBrowser{err: errors.New("no multicast")}, discovery.ErrBrowseFailed},
		{"bad window", []string{"-window", "0s"}, &fakeBrowser{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{}, tt.browser)
			if err == nil {
				t.Fatal("run() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
