// Package instance keeps the registry of Home Assistant servers.
//
// An Instance is one configured server. Its id is the optional {id} path
// parameter of every admin route. Instances are seeded from the servers
// section of the config file and stored in SQLite; the Registry caches
// them and holds the live data source attached to each one.
//
// Resolve is the single lookup the HTTP layer uses: it fails with a
// sentinel error unless the instance exists, is enabled, has a data source
// and that source is connected.
package instance
