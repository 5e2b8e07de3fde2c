package influxdb

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementState      = "ha_state"
	measurementConnection = "ha_connection"
)

// RecordState writes one entity state change.
//
// The point carries the server id, entity id and domain as tags, the raw
// state as the "state" field and, when the state is numeric, a float
// "value" field. Its time is the entity's last_updated when present.
// Removed entities (nil state) are not recorded.
//
// Parameters:
//   - serverID: Id of the Home Assistant server the change came from
//   - entityID: Entity id, e.g. "light.kitchen"
//   - state: The entity record as held by the data source
func (c *Client) RecordState(serverID, entityID string, state map[string]any) {
	if !c.IsConnected() || state == nil {
		return
	}
	c.writeAPI.WritePoint(statePoint(serverID, entityID, state, time.Now()))
}

// RecordConnection writes a connection state transition of a server.
func (c *Client) RecordConnection(serverID, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementConnection,
		map[string]string{"server": serverID},
		map[string]any{"state": state},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// statePoint builds the point RecordState writes. now is used when the
// state has no usable last_updated.
func statePoint(serverID, entityID string, state map[string]any, now time.Time) *write.Point {
	domain, _, _ := strings.Cut(entityID, ".")

	raw := stateString(state["state"])
	fields := map[string]any{"state": raw}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		fields["value"] = v
	}

	at := now
	if s, ok := state["last_updated"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			at = t
		}
	}

	return write.NewPoint(
		measurementState,
		map[string]string{
			"server":    serverID,
			"entity_id": entityID,
			"domain":    domain,
		},
		fields,
		at,
	)
}

// stateString renders a state value. Home Assistant states are strings,
// but statestream payloads may decode to other JSON types.
func stateString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
