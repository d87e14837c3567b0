package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client, limit, time.Minute), mr
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2)
	ctx := t.Context()

	ok, remaining, err := limiter.Allow(ctx, "store-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, remaining, err = limiter.Allow(ctx, "store-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, remaining)

	ok, _, err = limiter.Allow(ctx, "store-a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _, err = limiter.Allow(ctx, "store-b")
	require.NoError(t, err)
	assert.True(t, ok, "windows are counted per key")

	for _, key := range mr.Keys() {
		assert.Positive(t, mr.TTL(key))
	}
}

func TestRateLimit(t *testing.T) {
	svc := newTestJWTService()
	token, _ := issueToken(t, svc)
	limiter, mr := newTestLimiter(t, 1)

	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddleware(svc), RateLimit(limiter, zaptest.NewLogger(t)))
	router.GET("/api/v1/returns", func(c *gin.Context) { c.Status(http.StatusOK) })
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/returns", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := call()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = call()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, w).Code)

	t.Run("redis outage lets requests through", func(t *testing.T) {
		mr.SetError("LOADING Redis is loading the dataset in memory")
		t.Cleanup(func() { mr.SetError("") })

		assert.Equal(t, http.StatusOK, call().Code)
	})
}

func TestRateLimit_NilLimiter(t *testing.T) {
	w := httptest.NewRecorder()
	okRouter(RateLimit(nil, nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
