package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("dbc-backend", "1.0.0")
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
	assert.Empty(t, h.checks)
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("dbc-backend", "1.2.3")
	c, w := newTestContext()

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "dbc-backend", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("dbc-backend", "1.0.0")
	c, w := newTestContext()

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])
}

func TestSystemHandler_Health(t *testing.T) {
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewSystemHandler("dbc-backend", "1.0.0").
			AddCheck("database", up).
			AddCheck("redis", up)
		c, w := newTestContext()

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, map[string]interface{}{"database": "up", "redis": "up"}, data["checks"])
	})

	t.Run("a failing dependency degrades the service", func(t *testing.T) {
		h := NewSystemHandler("dbc-backend", "1.0.0").
			AddCheck("database", up).
			AddCheck("redis", down)
		c, w := newTestContext()

		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "degraded", data["status"])
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "up", checks["database"])
		assert.Equal(t, "down", checks["redis"])
	})

	t.Run("probes receive a deadline", func(t *testing.T) {
		var hasDeadline bool
		h := NewSystemHandler("dbc-backend", "1.0.0").
			AddCheck("database", pingerFunc(func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			}))
		c, _ := newTestContext()

		h.Health(c)

		require.True(t, hasDeadline)
	})
}
