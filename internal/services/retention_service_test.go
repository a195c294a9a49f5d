package services

import (
	"context"
	"testing"
	"time"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, f *fixture) {
		t.Helper()
		readings := []sensor.Reading{
			{ID: "old", Timestamp: now.Add(-40 * 24 * time.Hour), Humidity: sensor.Value(50)},
			{ID: "edge", Timestamp: now.Add(-30*24*time.Hour + time.Minute), Humidity: sensor.Value(51)},
			{ID: "fresh", Timestamp: now.Add(-time.Hour), Humidity: sensor.Value(52)},
		}
		require.NoError(t, f.store.SaveReadings(ctx, readings, SourceHTTP))
	}

	t.Run("Should delete readings older than the retention period", func(t *testing.T) {
		f := newFixture(t)
		seed(t, f)

		retention := NewRetentionService(f.store, 30*24*time.Hour, time.Hour, f.setup.Logger)
		retention.now = func() time.Time { return now }

		deleted, err := retention.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		remaining, err := f.store.ReadingsBetween(ctx, now.Add(-60*24*time.Hour), now)
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		assert.Equal(t, "edge", remaining[0].ID)
		assert.Equal(t, "fresh", remaining[1].ID)
	})

	t.Run("Should prune on start and stop cleanly", func(t *testing.T) {
		f := newFixture(t)
		seed(t, f)

		retention := NewRetentionService(f.store, 24*time.Hour, time.Hour, f.setup.Logger)
		retention.now = func() time.Time { return now }

		retention.Start(ctx)
		require.Eventually(t, func() bool {
			remaining, err := f.store.ReadingsBetween(ctx, now.Add(-60*24*time.Hour), now)
			return err == nil && len(remaining) == 1
		}, 5*time.Second, 10*time.Millisecond)
		retention.Stop()
	})
}
