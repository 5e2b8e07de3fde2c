// hass-discover lists Home Assistant servers advertised on the local network.
//
// Usage:
//
//	hass-discover [-window 3s] [-service _home-assistant._tcp] [-domain local.] [-json]
//
// It runs one discovery round, the same one the /discover route runs, and
// prints each server's label and URL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/nerrad567/gray-logic-hass/internal/discovery"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdout, discovery.NewZeroconfBrowser())
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck // best effort
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, browser discovery.Browser) error {
	fs := flag.NewFlagSet("hass-discover", flag.ContinueOnError)
	fs.SetOutput(out)
	window := fs.Duration("window", discovery.DefaultWindow, "how long to listen for advertisements")
	service := fs.String("service", discovery.DefaultService, "mDNS service type")
	domain := fs.String("domain", discovery.DefaultDomain, "mDNS domain")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *window <= 0 {
		return fmt.Errorf("-window must be positive")
	}

	d := discovery.New(browser, discovery.Config{
		Service: *service,
		Domain:  *domain,
		Window:  *window,
	})

	options, err := d.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovering: %w", err)
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(options)
	}

	return printOptions(out, options)
}

// printOptions writes one line per server, URL highlighted.
func printOptions(out io.Writer, options []discovery.Option) error {
	if len(options) == 0 {
		_, err := color.New(color.FgYellow).Fprintln(out, "no Home Assistant servers found")
		return err
	}

	label := color.New(color.Bold)
	url := color.New(color.FgCyan)
	for _, opt := range options {
		if _, err := label.Fprint(out, opt.Label); err != nil {
			return err
		}
		if _, err := fmt.Fprint(out, "  "); err != nil {
			return err
		}
		if _, err := url.Fprintln(out, opt.Value); err != nil {
			return err
		}
	}
	return nil
}
