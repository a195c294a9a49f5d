package mqtt

import (
	"context"
	"fmt"
	"strings"

	"github.com/babysphere/backend/internal/utils"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ReadingHandler receives one raw reading payload and the device named by its topic
type ReadingHandler func(ctx context.Context, deviceID string, payload []byte) error

// Subscriber delivers reading messages to a handler
type Subscriber struct {
	client  *Client
	topic   string
	qos     byte
	handler ReadingHandler
	ctx     context.Context
	logger  *utils.Logger
}

// NewSubscriber creates a subscriber for the configured readings topic.
// ctx is passed to every handler call.
func NewSubscriber(ctx context.Context, client *Client, handler ReadingHandler, logger *utils.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		topic:   client.config.ReadingsTopic,
		qos:     client.config.QoS,
		handler: handler,
		ctx:     ctx,
		logger:  logger.Named("mqtt_subscriber"),
	}
}

// Subscribe starts receiving readings
func (s *Subscriber) Subscribe() error {
	token := s.client.Native().Subscribe(s.topic, s.qos, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, token.Error())
	}

	s.logger.Info("Subscribed to readings topic",
		zap.String("topic", s.topic),
		zap.Uint8("qos", s.qos))
	return nil
}

// Unsubscribe stops receiving readings
func (s *Subscriber) Unsubscribe() error {
	token := s.client.Native().Unsubscribe(s.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.topic, token.Error())
	}
	return nil
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	deviceID := DeviceIDFromTopic(msg.Topic())

	if err := s.handler(s.ctx, deviceID, msg.Payload()); err != nil {
		s.logger.Warn("Failed to handle reading message",
			zap.String("topic", msg.Topic()),
			zap.String("device_id", deviceID),
			zap.Error(err))
	}
}

// DeviceIDFromTopic returns the second topic segment, or "" when absent
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// ReadingsTopic returns the topic a device publishes readings on
func ReadingsTopic(deviceID string) string {
	return fmt.Sprintf("babysphere/%s/readings", deviceID)
}
