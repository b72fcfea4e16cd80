package mqtt

import "fmt"

// Topic prefixes for the Coldwatch MQTT hierarchy.
//
// Everything lives under a single root: coldwatch/{category}/...
const (
	// TopicPrefix is the root of all Coldwatch topics.
	TopicPrefix = "coldwatch"

	// TopicPrefixDevice is the base for per-device telemetry.
	TopicPrefixDevice = "coldwatch/device"

	// TopicPrefixCommand is the base for inbound commands.
	TopicPrefixCommand = "coldwatch/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "coldwatch/system"
)

// Topics provides builders for Coldwatch MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	readingTopic := topics.DeviceReading("fz-01")
//	// Returns: "coldwatch/device/fz-01/reading"
type Topics struct{}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceReading returns the topic carrying the latest reading of a device.
// Messages are retained so new subscribers see the current value.
//
// Example: coldwatch/device/fz-01/reading
func (Topics) DeviceReading(deviceID string) string {
	return fmt.Sprintf("%s/%s/reading", TopicPrefixDevice, deviceID)
}

// =============================================================================
// Alert Topics
// =============================================================================

// Alert returns the topic for alert notifications.
//
// Example: coldwatch/alert/alt-1a2b3c4d
func (Topics) Alert(alertID string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefix, alertID)
}

// AlertCommand returns the topic for acknowledge/resolve commands.
//
// Example: coldwatch/command/alert/alt-1a2b3c4d
func (Topics) AlertCommand(alertID string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefixCommand, alertID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: coldwatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceReadings returns a pattern matching every device reading.
//
// Pattern: coldwatch/device/+/reading
func (Topics) AllDeviceReadings() string {
	return fmt.Sprintf("%s/+/reading", TopicPrefixDevice)
}

// AllAlerts returns a pattern matching all alert notifications.
//
// Pattern: coldwatch/alert/+
func (Topics) AllAlerts() string {
	return fmt.Sprintf("%s/alert/+", TopicPrefix)
}

// AllAlertCommands returns a pattern matching all alert commands.
//
// Pattern: coldwatch/command/alert/+
func (Topics) AllAlertCommands() string {
	return fmt.Sprintf("%s/alert/+", TopicPrefixCommand)
}

// AllTopics returns a pattern matching all Coldwatch topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: coldwatch/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
