// Package api implements the admin HTTP surface of the service.
//
// This package provides:
//   - Home Assistant read routes under a configurable namespace
//     (entities, states, services, properties, tags, version)
//   - mDNS discovery of Home Assistant servers on the local network
//   - JWT login and a static role-permission check on protected routes
//   - Middleware stack (request ID, logging, metrics, recovery, CORS)
//   - Health, system summary and Prometheus endpoints
//
// # Server selection
//
// Every Home Assistant route takes the server id as its last path segment.
// A route without an id, or whose server is unknown, disabled or not
// connected, answers 503 with the configured "no server selected" message.
//
// # Caching
//
// Servers configured with cache_json: false get no-store headers on every
// Home Assistant route, so browsers and proxies always fetch live data.
package api
