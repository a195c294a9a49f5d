package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/babysphere/backend/internal/api/middleware"
	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	ts := testutils.NewTestSetup(t)

	jwtConfig := &config.JWTConfig{
		Enabled: true,
		Secret:  "test-secret-key",
		Issuer:  "babysphere-auth",
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtConfig)

	ts.Router.GET("/protected", authMiddleware.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": middleware.UserID(c)})
	})

	sign := func(secret, issuer string, expires time.Time) string {
		return testutils.SignToken(ts.Requires, secret, &models.Claims{
			UserID: "parent-42",
			Email:  "parent@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expires),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				Issuer:    issuer,
			},
		})
	}

	t.Run("Should return 401 when no token provided", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/protected", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Contains(t, response["error"], "Authorization header is required")
	})

	t.Run("Should return 401 when invalid token format provided", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/protected", nil, map[string]string{
			"Authorization": "InvalidFormat token123",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Contains(t, response["error"], "Authorization header format must be Bearer")
	})

	t.Run("Should return 401 when token is signed with another secret", func(t *testing.T) {
		token := sign("wrong-secret", "babysphere-auth", time.Now().Add(time.Hour))
		resp := ts.ExecuteRequest("GET", "/protected", nil, testutils.AuthHeader(token))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should return 401 when token has expired", func(t *testing.T) {
		token := sign("test-secret-key", "babysphere-auth", time.Now().Add(-time.Hour))
		resp := ts.ExecuteRequest("GET", "/protected", nil, testutils.AuthHeader(token))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Equal(t, "token has expired", response["error"])
	})

	t.Run("Should return 401 when issuer does not match", func(t *testing.T) {
		token := sign("test-secret-key", "someone-else", time.Now().Add(time.Hour))
		resp := ts.ExecuteRequest("GET", "/protected", nil, testutils.AuthHeader(token))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should pass valid token and expose the user id", func(t *testing.T) {
		token := sign("test-secret-key", "babysphere-auth", time.Now().Add(time.Hour))
		resp := ts.ExecuteRequest("GET", "/protected", nil, testutils.AuthHeader(token))
		assert.Equal(t, http.StatusOK, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Equal(t, "parent-42", response["user_id"])
	})
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	ts := testutils.NewTestSetup(t)
	authMiddleware := middleware.NewAuthMiddleware(&config.JWTConfig{Enabled: false})

	ts.Router.GET("/open", authMiddleware.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	resp := ts.ExecuteRequest("GET", "/open", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	ts := testutils.NewTestSetup(t)
	ts.Router.Use(middleware.LoggingMiddleware(ts.Logger))
	ts.Router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("Should generate a request id", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/ping", nil, nil)
		assert.NotEmpty(t, resp.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("Should echo a caller supplied request id", func(t *testing.T) {
		resp := ts.ExecuteRequest("GET", "/ping", nil, map[string]string{middleware.RequestIDHeader: "abc"})
		assert.Equal(t, "abc", resp.Header().Get(middleware.RequestIDHeader))
	})
}
