package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/config"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTokenBucketAllow(t *testing.T) {
	_, client := newRedis(t)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "k", 0.5, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 2, res.Limit)
	}

	res, err := bucket.Allow(ctx, "k", 0.5, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	other, err := bucket.Allow(ctx, "other", 0.5, 2)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestTokenBucketValidation(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, client := newRedis(t)
	bucket := NewTokenBucket(client)
	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestLocker(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	err = locker.WithLock(ctx, "lock:a", time.Minute, func() error { return nil })
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, locker.Release(ctx, "lock:a", "not-the-owner"))
	assert.True(t, mr.Exists("lock:a"))
	require.NoError(t, locker.Release(ctx, "lock:a", token))
	assert.False(t, mr.Exists("lock:a"))

	boom := errors.New("boom")
	err = locker.WithLock(ctx, "lock:a", time.Minute, func() error {
		assert.True(t, mr.Exists("lock:a"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:a"))

	var nilLocker *Locker
	ran := false
	require.NoError(t, nilLocker.WithLock(ctx, "x", time.Second, func() error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestLockerWaitsForRelease(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "lock:b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = locker.WithLockWait(ctx, "lock:b", time.Minute, 20*time.Millisecond, func() error { return nil })
	assert.ErrorIs(t, err, ErrLocked)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = locker.Release(context.Background(), "lock:b", token)
	}()

	ran := false
	err = locker.WithLockWait(ctx, "lock:b", time.Minute, 5*time.Second, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:b"))
}

func TestMiddlewareLimitsPerActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, client := newRedis(t)

	limiter := NewLimiter(Params{
		Config:  config.Config{RateLimit: config.RateLimitConfig{PerSecond: 0.01, Burst: 1}},
		Log:     zap.NewNop(),
		Bucket:  NewTokenBucket(client),
		Metrics: metrics.NewNoop(),
	})
	require.True(t, limiter.Enabled())

	r := gin.New()
	r.GET("/ping", func(c *gin.Context) {
		who := c.GetHeader("X-Actor")
		var id int64 = 1
		if who == "second" {
			id = 2
		}
		actor := auth.Actor{ID: snowflake.ID(id), Role: "sales"}
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Next()
	}, limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	call := func(who string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Actor", who)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, call("first").Code)
	denied := call("first")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, call("second").Code)
}

func TestMiddlewareDisabledWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewLimiter(Params{
		Config: config.Config{RateLimit: config.RateLimitConfig{PerSecond: 1, Burst: 1}},
		Log:    zap.NewNop(),
		Bucket: NewTokenBucket(nil),
	})
	assert.False(t, limiter.Enabled())

	r := gin.New()
	r.GET("/ping", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
