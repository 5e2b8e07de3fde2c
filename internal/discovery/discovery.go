package discovery

import (
	"context"
	"fmt"
	"time"
)

// Defaults used when the matching Config field is empty.
const (
	DefaultService = "_home-assistant._tcp"
	DefaultDomain  = "local."
	DefaultWindow  = 3 * time.Second
)

// TXT record keys carrying the server URL, in order of preference.
var urlKeys = []string{"base_url", "internal_url", "external_url"}

// Option is one discovered server, shaped for a selection list.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Advertisement is a single mDNS service announcement.
type Advertisement struct {
	// Name is the service instance name, usually the Home Assistant
	// location name.
	Name string

	// Text holds the TXT records as key/value pairs.
	Text map[string]string
}

// URL returns the advertised server URL, or "" if none is present.
func (a Advertisement) URL() string {
	for _, key := range urlKeys {
		if v := a.Text[key]; v != "" {
			return v
		}
	}
	return ""
}

// Option converts the advertisement into a selection entry. Without a URL
// the entry keeps the name as label and an empty value.
func (a Advertisement) Option() Option {
	url := a.URL()
	if url == "" {
		return Option{Label: a.Name}
	}
	if a.Name == "" {
		return Option{Label: url, Value: url}
	}
	return Option{Label: fmt.Sprintf("%s (%s)", a.Name, url), Value: url}
}

// Browser listens for service advertisements.
//
// Browse sends every advertisement it hears to out until ctx is done, then
// releases the listener and returns. It must not send after ctx is done.
type Browser interface {
	Browse(ctx context.Context, service, domain string, out chan<- Advertisement) error
}

// Config configures a Discoverer.
type Config struct {
	Service string
	Domain  string
	Window  time.Duration
}

// Logger is the logging interface used by the discoverer.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Discoverer runs time-boxed discovery rounds. It is safe for concurrent
// use; every call to Discover has its own listener.
type Discoverer struct {
	browser Browser
	cfg     Config
	logger  Logger
}

// New creates a Discoverer.
func New(browser Browser, cfg Config) *Discoverer {
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Discoverer{browser: browser, cfg: cfg, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (d *Discoverer) SetLogger(logger Logger) {
	d.logger = logger
}

// Window returns how long one discovery round listens.
func (d *Discoverer) Window() time.Duration {
	return d.cfg.Window
}

// Discover listens for the configured window and returns the servers heard,
// in arrival order and without deduplication. The listener is stopped
// before Discover returns.
//
// If ctx is cancelled before the window ends, nothing is returned and the
// error is ctx's.
func (d *Discoverer) Discover(ctx context.Context) ([]Option, error) {
	windowCtx, cancel := context.WithTimeout(ctx, d.cfg.Window)
	defer cancel()

	ads := make(chan Advertisement)
	done := make(chan error, 1)
	go func() {
		done <- d.browser.Browse(windowCtx, d.cfg.Service, d.cfg.Domain, ads)
	}()

	options := []Option{}
	for {
		select {
		case ad := <-ads:
			if ad.URL() == "" {
				d.logger.Debug("advertisement without url", "name", ad.Name)
			}
			options = append(options, ad.Option())

		case err := <-done:
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBrowseFailed, err)
			}
			// The browser gave up early. Nothing more can arrive.
			<-windowCtx.Done()
			return d.finish(ctx, options)

		case <-windowCtx.Done():
			cancel()
			if err := <-done; err != nil {
				d.logger.Warn("mdns browser stopped with error", "error", err)
			}
			return d.finish(ctx, options)
		}
	}
}

func (d *Discoverer) finish(ctx context.Context, options []Option) ([]Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return options, nil
}
