// Package mqtt announces site-config changes over MQTT.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained change messages on <prefix>/site/changed
//   - Online/offline status with a Last Will on <prefix>/system/status
//   - Connection health monitoring
//
// MQTT is optional. When mqtt.enabled is false the store runs with a no-op
// notifier and nothing in this package is touched.
//
// # Message format
//
//	{"revision":"9f2c...","fields":["theme","topics"],"timestamp":"2026-03-01T12:00:00.000Z"}
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	notifier := mqtt.NewNotifier(client, client.Topics(), cfg.MQTT.QoS)
//	store := siteconfig.NewStore(backend, siteconfig.Options{Notifier: notifier})
package mqtt
