// Package mqtt connects the service to the device broker. Monitors publish
// one JSON reading per message on babysphere/<device>/readings.
package mqtt

import (
	"fmt"
	"time"

	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/utils"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Client manages the broker connection. Subscriber and Publisher share it.
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *utils.Logger
}

// NewClient connects to the configured broker
func NewClient(cfg *config.MQTTConfig, logger *utils.Logger) (*Client, error) {
	mqttLogger := logger.Named("mqtt_client")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		mqttLogger.Info("MQTT connection established", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		mqttLogger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{
		client: client,
		config: cfg,
		logger: mqttLogger,
	}, nil
}

// Native returns the underlying paho client
func (c *Client) Native() mqtt.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}
