// Package influxdb records Home Assistant state history in InfluxDB.
//
// Every entity state change seen by a data source can be written as an
// ha_state point, tagged with the server, entity id and domain. Connection
// state transitions of each server are written as ha_connection points.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history off
//	}
//	defer client.Close()
//
//	source.Observe(func(entityID string, state map[string]any) {
//	    client.RecordState("home", entityID, state)
//	})
//
// Writes are batched (batch_size, flush_interval) and never block the
// caller. Batch failures are reported through SetOnError.
package influxdb
