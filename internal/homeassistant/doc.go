// Package homeassistant supplies entity states, services and tags from a
// Home Assistant server.
//
// Two data sources implement DataSource:
//
//   - Client speaks the Home Assistant websocket API. It authenticates with
//     a long-lived access token, loads states, services, tags and the
//     Node-RED integration version, then follows state_changed events.
//     A lost connection is re-established in the background with
//     exponential backoff.
//   - Statestream rebuilds entity states from the mqtt_statestream
//     integration's retained topics. It has no services or tags.
//
// Both keep their data in a Store, which is safe for concurrent use and
// hands out deep copies.
package homeassistant
