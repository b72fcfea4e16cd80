// Package mqtt provides MQTT client connectivity for Coldwatch Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Coldwatch publishes outward facing events on MQTT and accepts a small set
// of commands back:
//
//	coldwatch/device/{id}/reading   retained latest reading per device
//	coldwatch/alert/{id}            alert created/updated notifications
//	coldwatch/command/alert/{id}    acknowledge/resolve commands (inbound)
//	coldwatch/system/status         online/offline status and LWT
//
// MQTT is optional. With mqtt.enabled=false nothing in this package is used.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllAlertCommands(), 1, handler)
package mqtt
