package homeassistant

import "encoding/json"

// Websocket message types used by the Home Assistant API.
const (
	msgAuthRequired = "auth_required"
	msgAuth         = "auth"
	msgAuthOK       = "auth_ok"
	msgAuthInvalid  = "auth_invalid"
	msgResult       = "result"
	msgEvent        = "event"
	msgPing         = "ping"
	msgPong         = "pong"

	cmdGetStates       = "get_states"
	cmdGetServices     = "get_services"
	cmdListTags        = "tag/list"
	cmdSubscribeEvents = "subscribe_events"
	cmdNodeRedVersion  = "nodered/version"
)

// Event types the client follows.
const (
	EventStateChanged = "state_changed"
	EventTagScanned   = "tag_scanned"

	// EventIntegration is fired by the Node-RED companion integration
	// when it is loaded or unloaded.
	EventIntegration = "nodered"

	integrationLoaded   = "loaded"
	integrationUnloaded = "unloaded"
)

// inbound is any message received from Home Assistant. Only the fields
// relevant to its Type are set.
type inbound struct {
	ID        int             `json:"id,omitempty"`
	Type      string          `json:"type"`
	HAVersion string          `json:"ha_version,omitempty"`
	Message   string          `json:"message,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *resultError    `json:"error,omitempty"`
	Event     *event          `json:"event,omitempty"`
}

type resultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	TimeFired string          `json:"time_fired"`
}

type stateChangedData struct {
	EntityID string         `json:"entity_id"`
	NewState map[string]any `json:"new_state"`
}

type tagScannedData struct {
	TagID string `json:"tag_id"`
}

type integrationData struct {
	Type string `json:"type"`
}

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// response is what a request waiter receives.
type response struct {
	result json.RawMessage
	err    error
}
