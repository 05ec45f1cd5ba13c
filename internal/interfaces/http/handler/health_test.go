package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	healthy := func(context.Context) error { return nil }

	t.Run("all components ok", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler("1.2.3", map[string]HealthCheck{"database": healthy, "redis": healthy}).Health)

		w := serve(r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "1.2.3", data["version"])
		assert.Equal(t, map[string]any{"database": "ok", "redis": "ok"}, data["components"])
	})

	t.Run("failed component degrades", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler("1.2.3", map[string]HealthCheck{
			"database": healthy,
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}).Health)

		w := serve(r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "degraded", data["status"])
		assert.Equal(t, "connection refused", data["components"].(map[string]any)["redis"])
	})

	t.Run("no checks", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler("dev", nil).Health)

		w := serve(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "components")
	})
}
