package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/babysphere/backend/internal/sensor"
)

// Publisher sends readings to the broker the way a monitor device does
type Publisher struct {
	client *Client
	qos    byte
}

// NewPublisher creates a publisher on client
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client, qos: client.config.QoS}
}

// PublishReading publishes r on its device's readings topic
func (p *Publisher) PublishReading(r sensor.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	topic := ReadingsTopic(r.DeviceID)
	token := p.client.Native().Publish(topic, p.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}
