// Package testutils holds shared fixtures for package tests: a sqlite-backed
// database, a gin router and helpers for signed requests.
package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/db"
	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

// TestSecret signs tokens in tests
const TestSecret = "test-secret-key-for-testing-only"

// TestSetup contains utilities for testing
type TestSetup struct {
	Router   *gin.Engine
	DB       *db.Database
	Logger   *utils.Logger
	Config   *config.Config
	Requires *require.Assertions
}

// NewTestSetup creates a router, a migrated in-memory SQLite database private
// to t and a test configuration. Resources are released via t.Cleanup.
func NewTestSetup(t *testing.T) *TestSetup {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := NewLogger(t)

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		JWT: config.JWTConfig{
			Enabled: true,
			Secret:  TestSecret,
		},
		Log: config.LogConfig{Level: "debug", Format: "console"},
		Monitor: config.MonitorConfig{
			Timezone:     "UTC",
			MaxPoints:    5,
			ReadingStore: config.StoreDatabase,
		},
		Alerts: config.AlertsConfig{
			HistoryLimit:      50,
			Store:             config.StoreDatabase,
			NotificationTitle: "Baby Health Alert",
		},
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	database, err := db.Open(sqlite.Open(dsn), logger)
	require.NoError(t, err, "Failed to create in-memory database")
	require.NoError(t, database.AutoMigrate(), "Failed to migrate database")

	// A single connection keeps the shared in-memory database alive and serializes writers.
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
		_ = logger.Sync()
	})

	router := gin.New()
	router.Use(gin.Recovery())

	return &TestSetup{
		Router:   router,
		DB:       database,
		Logger:   logger,
		Config:   cfg,
		Requires: require.New(t),
	}
}

// NewLogger returns a development logger for tests
func NewLogger(t *testing.T) *utils.Logger {
	t.Helper()

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapLogger, err := zapConfig.Build()
	require.NoError(t, err, "Failed to create zap logger")

	return &utils.Logger{Logger: zapLogger}
}

// ExecuteRequest executes a test request and returns the response
func (ts *TestSetup) ExecuteRequest(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reqBody = b
		case string:
			reqBody = []byte(b)
		default:
			var err error
			reqBody, err = json.Marshal(body)
			ts.Requires.NoError(err, "Failed to marshal request body")
		}
	}

	req, err := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	ts.Requires.NoError(err, "Failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp := httptest.NewRecorder()
	ts.Router.ServeHTTP(resp, req)

	return resp
}

// ParseResponse parses the JSON response into the provided struct
func (ts *TestSetup) ParseResponse(response *httptest.ResponseRecorder, target interface{}) {
	err := json.Unmarshal(response.Body.Bytes(), target)
	ts.Requires.NoError(err, "Failed to parse response body: %s", response.Body.String())
}

// CreateTestAuthToken signs a token the auth middleware accepts
func (ts *TestSetup) CreateTestAuthToken(userID, email string) string {
	return SignToken(ts.Requires, ts.Config.JWT.Secret, &models.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "babysphere-test",
		},
	})
}

// AuthHeader returns an Authorization header for token
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// SignToken signs claims with HS256
func SignToken(r *require.Assertions, secret string, claims *models.Claims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	r.NoError(err, "Failed to sign JWT token")
	return signed
}
