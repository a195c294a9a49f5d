package services

import (
	"context"
	"sync"
	"testing"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/db/repository"
	"github.com/babysphere/backend/internal/testutils"
)

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []alerting.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification alerting.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *recordingNotifier) all() []alerting.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]alerting.Notification(nil), n.notifications...)
}

type broadcast struct {
	topic            string
	notificationType NotificationType
	payload          interface{}
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []broadcast
}

func (b *recordingBroadcaster) Broadcast(topic string, notificationType NotificationType, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, broadcast{topic: topic, notificationType: notificationType, payload: payload})
}

type fixture struct {
	setup       *testutils.TestSetup
	store       *DatabaseReadingStore
	alerts      *AlertService
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	ingest      *IngestService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ts := testutils.NewTestSetup(t)
	factory := repository.NewRepositoryFactory(ts.DB.DB)

	f := &fixture{
		setup:       ts,
		store:       NewDatabaseReadingStore(factory.Reading()),
		notifier:    &recordingNotifier{},
		broadcaster: &recordingBroadcaster{},
	}
	f.alerts = NewAlertService(NewSettingAlertStore(factory.Setting()), &ts.Config.Alerts, f.notifier, ts.Logger)

	ingest, err := NewIngestService(f.store, f.alerts, f.broadcaster, ts.Logger)
	ts.Requires.NoError(err)
	f.ingest = ingest

	return f
}
