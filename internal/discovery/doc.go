// Package discovery finds Home Assistant servers on the local network.
//
// Home Assistant advertises itself over mDNS as _home-assistant._tcp with
// its URLs in TXT records. Discover listens for a fixed window, then stops
// the listener and returns every advertisement heard, in arrival order:
//
//	d := discovery.New(discovery.NewZeroconfBrowser(), discovery.Config{})
//	options, err := d.Discover(ctx)
//	// [{Label: "Home (http://192.168.1.10:8123)", Value: "http://192.168.1.10:8123"}]
package discovery
