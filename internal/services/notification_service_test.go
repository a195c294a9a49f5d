package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *NotificationService) (*websocket.Conn, *Client) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	clients := make(chan *Client, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		clients <- hub.RegisterClient(conn, "user-1")
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case client := <-clients:
		return conn, client
	case <-time.After(5 * time.Second):
		t.Fatal("client was not registered")
		return nil, nil
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) NotificationMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg NotificationMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestNotificationService(t *testing.T) {
	t.Run("Should push alerts to connected clients", func(t *testing.T) {
		hub := NewNotificationService(utils.NewNopLogger())
		defer hub.Close()

		conn, _ := dialHub(t, hub)
		require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

		event := alerting.Event{ID: "a1", Metric: sensor.HeartRate, Value: 190, Direction: alerting.Above}
		require.NoError(t, hub.Notify(context.Background(), alerting.NewNotification("", event)))

		msg := readMessage(t, conn)
		assert.Equal(t, NotificationTypeAlert, msg.Type)
		assert.Equal(t, TopicAlerts, msg.Topic)

		payload, ok := msg.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, alerting.DefaultNotificationTitle, payload["title"])
	})

	t.Run("Should only deliver subscribed topics once a client subscribes", func(t *testing.T) {
		hub := NewNotificationService(utils.NewNopLogger())
		defer hub.Close()

		conn, client := dialHub(t, hub)
		assert.True(t, client.wants(TopicReadings))

		require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "topic": TopicAlerts}))
		require.Eventually(t, func() bool { return !client.wants(TopicReadings) }, 5*time.Second, 10*time.Millisecond)

		hub.Broadcast(TopicReadings, NotificationTypeReading, "skipped")
		hub.Broadcast(TopicAlerts, NotificationTypeAlert, "delivered")

		msg := readMessage(t, conn)
		assert.Equal(t, TopicAlerts, msg.Topic)
		assert.Equal(t, "delivered", msg.Payload)
	})

	t.Run("Should drop clients on close", func(t *testing.T) {
		hub := NewNotificationService(utils.NewNopLogger())

		conn, _ := dialHub(t, hub)
		require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

		hub.Close()
		assert.Equal(t, 0, hub.ClientCount())

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)

		// Broadcasting after close is a no-op
		hub.Broadcast(TopicReadings, NotificationTypeReading, "late")
	})
}
