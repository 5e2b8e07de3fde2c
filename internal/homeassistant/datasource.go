package homeassistant

import "context"

// DataSource is a live view of one Home Assistant server.
//
// Every read returns data the caller owns. When Connected reports false
// the other reads return whatever was last known, and callers are expected
// to treat the source as unavailable.
type DataSource interface {
	Connected() bool

	// Entities returns the known entity ids, sorted.
	Entities() []string

	// States returns every entity record keyed by entity id.
	States() map[string]map[string]any

	// State returns one entity record.
	State(entityID string) (map[string]any, bool)

	// Services returns the service catalogue keyed by domain.
	Services() map[string]any

	// Tags returns the cached tag records in server order.
	Tags() []RawTag

	// RefreshTags reloads the tag cache from the server.
	RefreshTags(ctx context.Context) error

	// IntegrationVersion is the version reported by the Node-RED companion
	// integration, or "" when it is not installed.
	IntegrationVersion() string
}

// ConnectionState is the lifecycle state of a data source connection.
type ConnectionState int

// Connection states.
const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateDisconnected
	StateError
)

// String returns the state name used in logs and the system endpoint.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets the state appear by name in JSON.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Logger defines the logging interface used by the data sources.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
