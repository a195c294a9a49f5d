package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/testutils"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	ts       *testutils.TestSetup
	provider *services.ServiceProvider
	headers  map[string]string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	ts := testutils.NewTestSetup(t)
	provider := services.NewServiceProvider(ts.Logger, ts.Config, ts.DB)
	require.NoError(t, provider.Initialize(context.Background()))
	t.Cleanup(func() { _ = provider.Shutdown() })

	router := NewRouter(ts.Config, ts.Logger, ts.DB, provider)
	router.SetupRoutes()
	ts.Router = router.GetEngine()

	return &apiFixture{
		ts:       ts,
		provider: provider,
		headers:  testutils.AuthHeader(ts.CreateTestAuthToken("parent-1", "parent@example.com")),
	}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.ts.ExecuteRequest(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	f.ts.ParseResponse(resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("Should reject requests without a token", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/alerts/thresholds", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should accept a signed token", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/alerts/thresholds", nil, f.headers)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestReadingRoutes(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("Should accept a reading and report the alert it raised", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings",
			`{"id":"r1","deviceId":"crib-1","timestamp":"2024-03-01T09:00:00Z","baby_temperature":"38.5","humidity":45}`,
			f.headers)
		require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

		var body struct {
			Data struct {
				Reading struct {
					ID              string   `json:"id"`
					DeviceID        string   `json:"device_id"`
					BabyTemperature *float64 `json:"baby_temperature"`
				} `json:"reading"`
				Stored bool `json:"stored"`
				Alerts []struct {
					Metric  string `json:"metric"`
					Message string `json:"message"`
				} `json:"alerts"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)

		assert.Equal(t, "r1", body.Data.Reading.ID)
		assert.Equal(t, "crib-1", body.Data.Reading.DeviceID)
		require.NotNil(t, body.Data.Reading.BabyTemperature)
		assert.Equal(t, 38.5, *body.Data.Reading.BabyTemperature)
		assert.True(t, body.Data.Stored)
		require.Len(t, body.Data.Alerts, 1)
		assert.Equal(t, "baby_temperature", body.Data.Alerts[0].Metric)
		assert.Equal(t,
			"Urgent: Baby's BABY_TEMPERATURE is 38.5 which is above the safe range. Please check immediately.",
			body.Data.Alerts[0].Message)
	})

	t.Run("Should reject a malformed reading", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings", `{"humidity":true}`, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings", `not json`, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should accept a batch of buffered readings", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings/batch",
			`[{"id":"b1","timestamp":"2024-02-29T23:00:00Z","humidity":50},{"id":"b2","timestamp":"2024-02-29T23:05:00Z","humidity":52}]`,
			f.headers)
		require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

		var body struct {
			Data struct {
				Accepted int  `json:"accepted"`
				Stored   bool `json:"stored"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)
		assert.Equal(t, 2, body.Data.Accepted)
		assert.True(t, body.Data.Stored)

		resp = f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings/batch", `[]`, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		var errBody struct {
			Code string `json:"code"`
		}
		f.ts.ParseResponse(resp, &errBody)
		assert.Equal(t, "empty_batch", errBody.Code)
	})

	t.Run("Should return the latest reading", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/readings/latest", nil, f.headers)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)
		assert.Equal(t, "r1", body.Data.ID)
	})

	t.Run("Should list readings for a day", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/readings?date=2024-03-01&limit=10", nil, f.headers)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data       []map[string]interface{} `json:"data"`
			Pagination struct {
				TotalItems int `json:"total_items"`
				PerPage    int `json:"per_page"`
			} `json:"pagination"`
		}
		f.ts.ParseResponse(resp, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "r1", body.Data[0]["id"])
		assert.Equal(t, 1, body.Pagination.TotalItems)
		assert.Equal(t, 10, body.Pagination.PerPage)
	})

	t.Run("Should reject unknown query values", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/readings?timeframe=monthly", nil, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = f.ts.ExecuteRequest(http.MethodGet, "/api/v1/readings?window=forever", nil, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = f.ts.ExecuteRequest(http.MethodGet, "/api/v1/readings?date=01-03-2024", nil, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestLatestReadingNotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/readings/latest", nil, f.headers)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSeriesRoute(t *testing.T) {
	f := newAPIFixture(t)

	for i, temp := range []float64{36.0, 36.2, 36.5, 37.1, 38.5} {
		ts := time.Date(2024, 3, 1, 9, i*5, 0, 0, time.UTC)
		payload := fmt.Sprintf(`{"id":"r%d","timestamp":%q,"baby_temperature":%v}`, i, ts.Format(time.RFC3339), temp)
		resp := f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings", payload, f.headers)
		require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	}

	t.Run("Should chart a metric for a day", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet,
			"/api/v1/history/series?metric=baby_temperature&timeframe=raw&date=2024-03-01", nil, f.headers)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var body struct {
			Data struct {
				Labels   []string  `json:"labels"`
				Values   []float64 `json:"values"`
				YAxisMin float64   `json:"y_axis_min"`
				YAxisMax float64   `json:"y_axis_max"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)
		assert.Equal(t, []float64{36.0, 36.2, 36.5, 37.1, 38.5}, body.Data.Values)
		assert.Len(t, body.Data.Labels, 5)
		assert.Equal(t, 35.0, body.Data.YAxisMin)
		assert.Equal(t, 39.0, body.Data.YAxisMax)
	})

	t.Run("Should keep the newest buckets within max_points", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet,
			"/api/v1/history/series?metric=baby_temperature&date=2024-03-01&max_points=2", nil, f.headers)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data struct {
				Values []float64 `json:"values"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)
		assert.Equal(t, []float64{37.1, 38.5}, body.Data.Values)
	})

	t.Run("Should reject a missing or unknown metric", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/history/series", nil, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = f.ts.ExecuteRequest(http.MethodGet, "/api/v1/history/series?metric=crying", nil, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestAlertRoutes(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("Should return the default thresholds", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodGet, "/api/v1/alerts/thresholds", nil, f.headers)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data map[string]struct {
				Min float64  `json:"min"`
				Max *float64 `json:"max"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)
		assert.Equal(t, 92.0, body.Data["spo2"].Min)
		assert.Nil(t, body.Data["spo2"].Max)
		require.NotNil(t, body.Data["heart_rate"].Max)
		assert.Equal(t, 180.0, *body.Data["heart_rate"].Max)
	})

	t.Run("Should reject an inverted range and keep the old thresholds", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodPut, "/api/v1/alerts/thresholds",
			map[string]interface{}{"thresholds": map[string]interface{}{
				"heartRate": map[string]interface{}{"min": 180, "max": 100},
			}}, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		hrMax := f.provider.GetAlertService().Thresholds()[sensor.HeartRate].Max
		require.NotNil(t, hrMax)
		assert.Equal(t, 180.0, *hrMax)
	})

	t.Run("Should reject an unknown metric", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodPut, "/api/v1/alerts/thresholds",
			map[string]interface{}{"thresholds": map[string]interface{}{
				"wellness": map[string]interface{}{"min": 1},
			}}, f.headers)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should apply new thresholds to later readings", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodPut, "/api/v1/alerts/thresholds",
			map[string]interface{}{"thresholds": map[string]interface{}{
				"heartRate": map[string]interface{}{"min": 100, "max": 120},
				"spo2":      map[string]interface{}{"min": 95},
			}}, f.headers)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		resp = f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings", `{"heartRate":125,"spo2":97}`, f.headers)
		require.Equal(t, http.StatusAccepted, resp.Code)

		resp = f.ts.ExecuteRequest(http.MethodGet, "/api/v1/alerts/history", nil, f.headers)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data []struct {
				Metric    string `json:"metric"`
				Direction string `json:"direction"`
			} `json:"data"`
		}
		f.ts.ParseResponse(resp, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "heart_rate", body.Data[0].Metric)
		assert.Equal(t, "above", body.Data[0].Direction)
	})

	t.Run("Should clear the alert history", func(t *testing.T) {
		resp := f.ts.ExecuteRequest(http.MethodDelete, "/api/v1/alerts/history", nil, f.headers)
		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Empty(t, f.provider.GetAlertService().History())
	})
}

func TestWebSocketRoute(t *testing.T) {
	f := newAPIFixture(t)

	server := httptest.NewServer(f.ts.Router)
	t.Cleanup(server.Close)

	header := http.Header{}
	for k, v := range f.headers {
		header.Set(k, v)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hub := f.provider.GetNotificationService()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	resp := f.ts.ExecuteRequest(http.MethodPost, "/api/v1/readings", `{"heartRate":195}`, f.headers)
	require.Equal(t, http.StatusAccepted, resp.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got []services.NotificationType
	for len(got) < 2 {
		var msg services.NotificationMessage
		require.NoError(t, conn.ReadJSON(&msg))
		got = append(got, msg.Type)
	}
	assert.ElementsMatch(t, []services.NotificationType{services.NotificationTypeAlert, services.NotificationTypeReading}, got)
}
