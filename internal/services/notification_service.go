package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Websocket topics
const (
	TopicAlerts   = "alerts"
	TopicReadings = "readings"
	TopicSystem   = "system"
)

const (
	clientSendBuffer = 256
	broadcastBuffer  = 256
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
	writeWait        = 10 * time.Second
	maxMessageSize   = 4096
)

// Client represents a websocket client connection
type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte

	mu     sync.RWMutex
	topics map[string]bool
}

// wants reports whether the client receives messages on topic. A client with
// no subscriptions receives every topic.
func (c *Client) wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics) == 0 || c.topics[topic]
}

// NotificationType defines types of notification messages
type NotificationType string

const (
	// NotificationTypeAlert for threshold alerts
	NotificationTypeAlert NotificationType = "alert"
	// NotificationTypeReading for freshly ingested readings
	NotificationTypeReading NotificationType = "reading"
	// NotificationTypeSystemEvent for service-wide events
	NotificationTypeSystemEvent NotificationType = "system_event"
)

// NotificationMessage represents a message sent to clients
type NotificationMessage struct {
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Topic     string           `json:"topic"`
	Payload   interface{}      `json:"payload"`
}

// NotificationService manages websocket connections and pushes live
// readings and alerts to them
type NotificationService struct {
	logger     *utils.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *NotificationMessage
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	countMu sync.RWMutex
	count   int
}

// NewNotificationService creates a new notification service and starts its hub loop
func NewNotificationService(logger *utils.Logger) *NotificationService {
	service := &NotificationService{
		logger:     logger.Named("notification_service"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *NotificationMessage, broadcastBuffer),
		done:       make(chan struct{}),
	}

	service.wg.Add(1)
	go service.run()
	return service
}

// RegisterClient adds a new websocket client and starts its pumps
func (s *NotificationService) RegisterClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, clientSendBuffer),
		topics: make(map[string]bool),
	}

	s.wg.Add(2)
	select {
	case s.register <- client:
	case <-s.done:
		s.wg.Add(-2)
		_ = conn.Close()
		return client
	}

	go s.readPump(client)
	go s.writePump(client)

	return client
}

// SubscribeToTopic subscribes a client to a specific topic
func (s *NotificationService) SubscribeToTopic(client *Client, topic string) {
	client.mu.Lock()
	client.topics[topic] = true
	client.mu.Unlock()

	s.logger.Debug("Client subscribed to topic",
		zap.String("user_id", client.userID),
		zap.String("topic", topic))
}

// UnsubscribeFromTopic unsubscribes a client from a specific topic
func (s *NotificationService) UnsubscribeFromTopic(client *Client, topic string) {
	client.mu.Lock()
	delete(client.topics, topic)
	client.mu.Unlock()

	s.logger.Debug("Client unsubscribed from topic",
		zap.String("user_id", client.userID),
		zap.String("topic", topic))
}

// Broadcast queues a message for every client interested in topic. It never
// blocks; when the queue is full the message is dropped.
func (s *NotificationService) Broadcast(topic string, notificationType NotificationType, payload interface{}) {
	message := &NotificationMessage{
		Type:      notificationType,
		Timestamp: time.Now().UTC(),
		Topic:     topic,
		Payload:   payload,
	}

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.broadcast <- message:
	default:
		s.logger.Warn("Broadcast queue full, message dropped",
			zap.String("topic", topic),
			zap.String("type", string(notificationType)))
	}
}

// Notify pushes an alert notification to websocket clients
func (s *NotificationService) Notify(_ context.Context, n alerting.Notification) error {
	s.Broadcast(TopicAlerts, NotificationTypeAlert, n)
	return nil
}

// ClientCount returns the number of connected clients
func (s *NotificationService) ClientCount() int {
	s.countMu.RLock()
	defer s.countMu.RUnlock()
	return s.count
}

// Close disconnects every client and stops the hub
func (s *NotificationService) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// run owns the client set; every add, remove and fan-out happens here
func (s *NotificationService) run() {
	defer s.wg.Done()

	for {
		select {
		case client := <-s.register:
			s.clients[client] = true
			s.setCount(len(s.clients))
			s.logger.Debug("Client registered", zap.String("user_id", client.userID))

		case client := <-s.unregister:
			s.removeClient(client)
			s.logger.Debug("Client unregistered", zap.String("user_id", client.userID))

		case message := <-s.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				s.logger.Error("Failed to marshal notification message",
					zap.Error(err),
					zap.String("type", string(message.Type)),
					zap.String("topic", message.Topic))
				continue
			}
			for client := range s.clients {
				if client.wants(message.Topic) {
					s.sendToClient(client, data)
				}
			}

		case <-s.done:
			for client := range s.clients {
				s.removeClient(client)
				_ = client.conn.Close()
			}
			return
		}
	}
}

// sendToClient sends a message to a specific client
func (s *NotificationService) sendToClient(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		s.removeClient(client)
		s.logger.Warn("Client buffer full, connection closed", zap.String("user_id", client.userID))
	}
}

func (s *NotificationService) removeClient(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.send)
	s.setCount(len(s.clients))
}

func (s *NotificationService) setCount(n int) {
	s.countMu.Lock()
	s.count = n
	s.countMu.Unlock()
}

// readPump reads subscription requests from the client
func (s *NotificationService) readPump(client *Client) {
	defer func() {
		select {
		case s.unregister <- client:
		case <-s.done:
		}
		_ = client.conn.Close()
		s.wg.Done()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				s.logger.Warn("Unexpected websocket close",
					zap.Error(err),
					zap.String("user_id", client.userID))
			}
			return
		}

		var clientMsg struct {
			Action string `json:"action"`
			Topic  string `json:"topic"`
		}

		if err := json.Unmarshal(message, &clientMsg); err != nil {
			s.logger.Warn("Invalid client message",
				zap.Error(err),
				zap.ByteString("message", message))
			continue
		}

		switch clientMsg.Action {
		case "subscribe":
			if clientMsg.Topic != "" {
				s.SubscribeToTopic(client, clientMsg.Topic)
			}
		case "unsubscribe":
			if clientMsg.Topic != "" {
				s.UnsubscribeFromTopic(client, clientMsg.Topic)
			}
		}
	}
}

// writePump writes queued messages and keepalive pings to the client
func (s *NotificationService) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
		s.wg.Done()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
