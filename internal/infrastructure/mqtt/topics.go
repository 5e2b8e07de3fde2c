package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base of every topic the bridge itself publishes.
const TopicPrefix = "graylogic/hass"

// Topics provides builders for the topics the bridge uses.
//
// Two families exist: the bridge's own status topics below TopicPrefix, and
// the Home Assistant mqtt_statestream topics below a configurable base:
//
//	topics := mqtt.Topics{}
//	topics.StatestreamAttribute("homeassistant", "light", "kitchen", "state")
//	// Returns: "homeassistant/light/kitchen/state"
type Topics struct{}

// Status returns the retained online/offline topic of the bridge.
//
// Example: graylogic/hass/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// ServerStatus returns the retained connection state topic of one
// Home Assistant server.
//
// Example: graylogic/hass/server/home/status
func (Topics) ServerStatus(serverID string) string {
	return fmt.Sprintf("%s/server/%s/status", TopicPrefix, serverID)
}

// AllServerStatus returns a wildcard for every server status topic.
func (Topics) AllServerStatus() string {
	return TopicPrefix + "/server/+/status"
}

// StatestreamAll returns a wildcard for everything published below a
// statestream base topic.
//
// Example: homeassistant/#
func (Topics) StatestreamAll(base string) string {
	return strings.TrimSuffix(base, "/") + "/#"
}

// StatestreamAttribute returns the topic of one entity attribute.
//
// Example: homeassistant/sensor/outside/temperature
func (Topics) StatestreamAttribute(base, domain, objectID, attribute string) string {
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimSuffix(base, "/"), domain, objectID, attribute)
}
