package instance

import (
	"fmt"
	"time"
)

// Kind selects how a server is reached.
type Kind string

// Instance kinds.
const (
	// KindWebSocket uses the Home Assistant websocket API.
	KindWebSocket Kind = "websocket"

	// KindStatestream follows the mqtt_statestream integration over MQTT.
	KindStatestream Kind = "statestream"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindWebSocket || k == KindStatestream
}

// Instance is one configured Home Assistant server.
type Instance struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	BaseURL     string `json:"base_url,omitempty"`
	AccessToken string `json:"-"`

	// TopicBase is the statestream base topic (statestream only).
	TopicBase string `json:"topic_base,omitempty"`

	// CacheJSON false makes the admin routes send no-cache headers.
	CacheJSON bool `json:"cache_json"`
	Enabled   bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the instance is usable.
func (i *Instance) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInstance)
	}
	if i.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidInstance, i.ID)
	}

	switch i.Kind {
	case KindWebSocket:
		if i.BaseURL == "" {
			return fmt.Errorf("%w: %s: base_url is required for websocket servers", ErrInvalidInstance, i.ID)
		}
	case KindStatestream:
		if i.TopicBase == "" {
			return fmt.Errorf("%w: %s: topic_base is required for statestream servers", ErrInvalidInstance, i.ID)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidInstance, i.ID, i.Kind)
	}

	return nil
}
