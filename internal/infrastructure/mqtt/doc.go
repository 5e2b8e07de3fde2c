// Package mqtt provides the MQTT client of the bridge.
//
// It is used for two things:
//   - Following Home Assistant servers that publish their entities with the
//     mqtt_statestream integration instead of being reached over websocket.
//   - Announcing the bridge's own status, and the connection state of each
//     Home Assistant server, as retained messages below graylogic/hass.
//
// The client reconnects on its own and restores subscriptions afterwards.
// A Last Will marks the bridge offline if it exits uncleanly.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.StatestreamAll("homeassistant"), 1,
//	    func(topic string, payload []byte) error {
//	        // homeassistant/light/kitchen/state = "on"
//	        return nil
//	    })
package mqtt
