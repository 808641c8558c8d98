package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// Publisher is the subset of *Client the notifier needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Notifier announces site-config writes on <prefix>/site/changed.
//
// Messages are retained so a subscriber that connects late (a static-site
// rebuilder, a cache purger) still learns the current revision.
type Notifier struct {
	pub   Publisher
	topic string
	qos   byte
}

// NewNotifier returns a siteconfig.Notifier publishing through pub.
func NewNotifier(pub Publisher, topics Topics, qos int) *Notifier {
	if qos < 0 || qos > maxQoS {
		qos = 1
	}
	return &Notifier{pub: pub, topic: topics.SiteChanged(), qos: byte(qos)}
}

// changePayload is the wire form of siteconfig.Change.
type changePayload struct {
	Revision  string   `json:"revision"`
	Fields    []string `json:"fields"`
	Timestamp string   `json:"timestamp"`
}

// Notify implements siteconfig.Notifier.
func (n *Notifier) Notify(ctx context.Context, change siteconfig.Change) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt notify: %w", err)
	}

	fields := change.Fields
	if fields == nil {
		fields = []string{}
	}
	payload, err := json.Marshal(changePayload{
		Revision:  change.Revision,
		Fields:    fields,
		Timestamp: change.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}

	return n.pub.Publish(n.topic, payload, n.qos, true)
}
