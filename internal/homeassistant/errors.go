package homeassistant

import "errors"

// Domain errors for the homeassistant package.
var (
	// ErrNotConnected is returned when a request is made without a live connection.
	ErrNotConnected = errors.New("homeassistant: not connected")

	// ErrAuthInvalid is returned when Home Assistant rejects the access token.
	ErrAuthInvalid = errors.New("homeassistant: authentication rejected")

	// ErrConnectionLost is returned to requests still waiting when the connection drops.
	ErrConnectionLost = errors.New("homeassistant: connection lost")

	// ErrRequestFailed is returned when Home Assistant answers a request with success=false.
	ErrRequestFailed = errors.New("homeassistant: request failed")

	// ErrProtocol is returned for unexpected messages during the handshake.
	ErrProtocol = errors.New("homeassistant: protocol error")

	// ErrInvalidBaseURL is returned when a server URL cannot be turned into a websocket URL.
	ErrInvalidBaseURL = errors.New("homeassistant: invalid base URL")
)
