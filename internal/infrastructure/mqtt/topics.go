package mqtt

// DefaultTopicPrefix is used when mqtt.topic_prefix is empty.
const DefaultTopicPrefix = "shodaiev"

// Topics builds the service's MQTT topic names under one prefix.
//
//	topics := mqtt.NewTopics("shodaiev")
//	topics.SiteChanged() // "shodaiev/site/changed"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// SiteChanged carries one retained message per site-config write.
func (t Topics) SiteChanged() string {
	return t.prefix + "/site/changed"
}

// SystemStatus carries the service's online/offline status (retained, LWT).
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// All matches every topic under the prefix.
func (t Topics) All() string {
	return t.prefix + "/#"
}
