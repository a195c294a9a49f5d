package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/utils"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// MessageHandler is a function that processes a Kafka message
type MessageHandler func(msg *kafka.Message) error

// Consumer reads registered topics and hands each message to its handlers.
// Messages whose handler fails are forwarded to "<topic>.dlq".
type Consumer struct {
	consumer    *kafka.Consumer
	logger      *utils.Logger
	config      *config.KafkaConfig
	handlers    map[string][]MessageHandler
	dlqProducer *Producer
	stopChannel chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	isRunning   bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, logger *utils.Logger, dlqProducer *Producer) (*Consumer, error) {
	kafkaLogger := logger.Named("kafka_consumer")

	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers":       cfg.Brokers,
		"group.id":                cfg.ConsumerGroup,
		"auto.offset.reset":       "earliest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	}

	if err := applySecurity(kafkaConfig, cfg); err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &Consumer{
		consumer:    consumer,
		logger:      kafkaLogger,
		config:      cfg,
		handlers:    make(map[string][]MessageHandler),
		dlqProducer: dlqProducer,
		stopChannel: make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// RegisterHandler registers a message handler for a specific topic
func (c *Consumer) RegisterHandler(topic string, handler MessageHandler) {
	c.handlers[topic] = append(c.handlers[topic], handler)
	c.logger.Info("Registered handler for topic", zap.String("topic", topic))
}

// Start subscribes to the registered topics and starts the consume loop
func (c *Consumer) Start(ctx context.Context) error {
	if c.isRunning {
		return fmt.Errorf("consumer is already running")
	}

	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}

	if len(topics) == 0 {
		return fmt.Errorf("no topics registered")
	}

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	c.logger.Info("Subscribed to topics", zap.Strings("topics", topics))

	c.isRunning = true
	go c.consumeLoop(ctx)

	return nil
}

// consumeLoop runs the main consumption loop
func (c *Consumer) consumeLoop(ctx context.Context) {
	defer close(c.done)
	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.logger.Warn("Failed to close Kafka consumer", zap.Error(err))
		}
	}()

	c.logger.Info("Starting Kafka consumer loop")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Context canceled, stopping consumer")
			return

		case <-c.stopChannel:
			c.logger.Info("Received stop signal, stopping consumer")
			return

		default:
			msg, err := c.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kafkaErr kafka.Error
				if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrTimedOut {
					continue
				}

				c.logger.Error("Error reading message from Kafka", zap.Error(err))
				continue
			}

			c.processMessage(msg)
		}
	}
}

// processMessage processes a Kafka message using registered handlers
func (c *Consumer) processMessage(msg *kafka.Message) {
	if msg == nil || msg.TopicPartition.Topic == nil {
		return
	}

	topic := *msg.TopicPartition.Topic
	handlers, ok := c.handlers[topic]
	if !ok || len(handlers) == 0 {
		c.logger.Warn("No handlers registered for topic", zap.String("topic", topic))
		return
	}

	c.logger.Debug("Processing message",
		zap.String("topic", topic),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)),
		zap.Time("timestamp", msg.Timestamp),
	)

	for i, handler := range handlers {
		if err := handler(msg); err != nil {
			c.logger.Error("Handler failed to process message",
				zap.String("topic", topic),
				zap.Int("handler_index", i),
				zap.Error(err),
			)
			c.deadLetter(topic, msg, err)
		}
	}
}

// deadLetter forwards a message that failed processing
func (c *Consumer) deadLetter(topic string, msg *kafka.Message, cause error) {
	if c.dlqProducer == nil {
		return
	}

	dlqTopic := fmt.Sprintf("%s.dlq", topic)
	dlqMessage := &Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Timestamp: time.Now(),
		Headers: map[string]string{
			"error":          cause.Error(),
			"original_topic": topic,
		},
	}

	if err := c.dlqProducer.ProduceSync(dlqTopic, dlqMessage); err != nil {
		c.logger.Error("Failed to send message to DLQ",
			zap.String("dlq_topic", dlqTopic),
			zap.Error(err),
		)
	}
}

// Stop stops the consumer and waits for the loop to exit
func (c *Consumer) Stop() {
	if !c.isRunning {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stopChannel)
	})
	<-c.done
	c.isRunning = false
	c.logger.Info("Kafka consumer stopped")
}
