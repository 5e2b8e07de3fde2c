package discovery

import (
	"context"
	"strings"

	"github.com/grandcat/zeroconf"
)

// ZeroconfBrowser is a Browser backed by github.com/grandcat/zeroconf.
type ZeroconfBrowser struct{}

// NewZeroconfBrowser creates a browser using all multicast interfaces.
func NewZeroconfBrowser() *ZeroconfBrowser {
	return &ZeroconfBrowser{}
}

// Browse implements Browser.
func (ZeroconfBrowser) Browse(ctx context.Context, service, domain string, out chan<- Advertisement) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			select {
			case out <- fromEntry(entry):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func fromEntry(entry *zeroconf.ServiceEntry) Advertisement {
	return Advertisement{
		Name: unescapeInstance(entry.Instance),
		Text: parseTXT(entry.Text),
	}
}

// parseTXT turns "key=value" records into a map. Keys without a value map
// to "".
func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))
	for _, rec := range records {
		key, value, _ := strings.Cut(rec, "=")
		if key != "" {
			txt[key] = value
		}
	}
	return txt
}

// unescapeInstance removes DNS-SD escaping from an instance name,
// e.g. `My\ Home` becomes "My Home".
func unescapeInstance(name string) string {
	if !strings.Contains(name, `\`) {
		return name
	}

	var b strings.Builder
	b.Grow(len(name))
	escaped := false
	for _, r := range name {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
