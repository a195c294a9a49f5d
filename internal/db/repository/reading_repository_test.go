package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/db/repository"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/testutils"
	"github.com/babysphere/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingRepository(t *testing.T) {
	ts := testutils.NewTestSetup(t)
	repo := repository.NewRepositoryFactory(ts.DB.DB).Reading()
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Should report not found on an empty table", func(t *testing.T) {
		_, err := repo.Latest(ctx)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.True(t, utils.IsNotFoundError(err))
	})

	var rows []models.SensorReading
	for i := 0; i < 6; i++ {
		rows = append(rows, *models.NewSensorReading(sensor.Reading{
			ID:              fmt.Sprintf("r-%d", i),
			DeviceID:        "crib-1",
			Timestamp:       start.Add(time.Duration(i) * 5 * time.Minute),
			BabyTemperature: sensor.Value(36.0 + float64(i)/10),
		}, "test"))
	}
	require.NoError(t, repo.InsertBatch(ctx, rows))

	t.Run("Should ignore duplicate inserts", func(t *testing.T) {
		dup := rows[0]
		require.NoError(t, repo.Insert(ctx, &dup))

		all, err := repo.FindBetween(ctx, start, start.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, all, 6)
	})

	t.Run("Should return a half-open window oldest first", func(t *testing.T) {
		found, err := repo.FindBetween(ctx, start.Add(5*time.Minute), start.Add(20*time.Minute))
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, "r-1", found[0].ID)
		assert.Equal(t, "r-3", found[2].ID)
	})

	t.Run("Should keep missing metrics as nil", func(t *testing.T) {
		found, err := repo.FindBetween(ctx, start, start.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, found, 1)

		reading := found[0].ToReading()
		assert.Nil(t, reading.HeartRate)
		require.NotNil(t, reading.BabyTemperature)
		assert.Equal(t, 36.0, *reading.BabyTemperature)
	})

	t.Run("Should paginate newest first", func(t *testing.T) {
		page, total, err := repo.FindPage(ctx, start, start.Add(time.Hour), utils.PaginationRequest{Page: 2, Limit: 4})
		require.NoError(t, err)
		assert.EqualValues(t, 6, total)
		require.Len(t, page, 2)
		assert.Equal(t, "r-1", page[0].ID)
		assert.Equal(t, "r-0", page[1].ID)
	})

	t.Run("Should return the latest reading", func(t *testing.T) {
		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r-5", latest.ID)
	})

	t.Run("Should delete readings before a cutoff", func(t *testing.T) {
		deleted, err := repo.DeleteBefore(ctx, start.Add(10*time.Minute))
		require.NoError(t, err)
		assert.EqualValues(t, 2, deleted)
	})
}
