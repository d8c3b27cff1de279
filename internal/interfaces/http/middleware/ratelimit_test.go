package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dbcb2b/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// drain spends n requests for key and returns how many were allowed
func drain(rl *RateLimiter, key string, n int) int {
	allowed := 0
	for i := 0; i < n; i++ {
		if rl.Allow(key) {
			allowed++
		}
	}
	return allowed
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst is capped per key", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)

		assert.Equal(t, 3, rl.Remaining("seller-1"))
		assert.Equal(t, 3, drain(rl, "seller-1", 5))
		assert.Equal(t, 0, rl.Remaining("seller-1"))
		assert.Equal(t, 2, drain(rl, "seller-2", 2), "keys do not share a bucket")
		assert.Equal(t, 1, rl.Remaining("seller-2"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		rl := NewRateLimiter(2, 40*time.Millisecond)
		assert.Equal(t, 2, drain(rl, "k", 3))

		time.Sleep(50 * time.Millisecond)
		assert.True(t, rl.Allow("k"))
	})

	t.Run("invalid settings fall back", func(t *testing.T) {
		rl := NewRateLimiter(0, 0)
		assert.Equal(t, 1, rl.Limit())
		assert.Equal(t, time.Minute, rl.window)
	})

	t.Run("concurrent callers never exceed the burst", func(t *testing.T) {
		rl := NewRateLimiter(50, time.Hour)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 80; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rl.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("returns 429 when limit exceeded", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)
		router := gin.New()
		router.Use(RateLimit(limiter))
		router.POST("/imports", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/imports", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		}

		req := httptest.NewRequest(http.MethodPost, "/imports", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), dto.ErrCodeRateLimited)
	})

	t.Run("keys by authenticated user", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set(JWTUserIDKey, c.GetHeader("X-Test-User"))
			c.Next()
		})
		router.Use(RateLimit(limiter))
		router.POST("/imports", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		send := func(user string) int {
			req := httptest.NewRequest(http.MethodPost, "/imports", nil)
			req.Header.Set("X-Test-User", user)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusOK, send("user-1"))
		assert.Equal(t, http.StatusTooManyRequests, send("user-1"))
		assert.Equal(t, http.StatusOK, send("user-2"))
	})
}

func TestRateLimitByKey(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	router := gin.New()
	router.Use(RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.Param("id")
	}))
	router.GET("/orders/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("/orders/a"))
	assert.Equal(t, http.StatusTooManyRequests, send("/orders/a"))
	assert.Equal(t, http.StatusOK, send("/orders/b"))
}
