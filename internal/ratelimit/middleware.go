package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/config"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyActor = "millrun:ratelimit:actor:%s"

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Bucket  *TokenBucket
	Metrics *metrics.Metrics `optional:"true"`
}

// Limiter throttles authenticated requests per actor.
type Limiter struct {
	bucket  *TokenBucket
	log     *zap.Logger
	metrics *metrics.Metrics
	rate    float64
	burst   int
}

func NewLimiter(p Params) *Limiter {
	return &Limiter{
		bucket:  p.Bucket,
		log:     p.Log.Named("ratelimit"),
		metrics: p.Metrics,
		rate:    p.Config.RateLimit.PerSecond,
		burst:   p.Config.RateLimit.Burst,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil && l.rate > 0 && l.burst > 0
}

// Middleware must run after auth.Middleware. Redis failures let the request
// through.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Enabled() {
			c.Next()
			return
		}
		actor, ok := auth.ActorFromGin(c)
		if !ok {
			c.Next()
			return
		}

		res, err := l.bucket.Allow(c.Request.Context(), fmt.Sprintf(keyActor, actor.ID), l.rate, l.burst)
		if err != nil {
			l.log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			l.metrics.RecordRateLimitDenied(c.Request.Context(), c.FullPath())
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many requests",
				},
			})
			return
		}
		c.Next()
	}
}
