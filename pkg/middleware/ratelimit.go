package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/scenariosim/pkg/logger"
	"github.com/wyfcoding/scenariosim/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimitMiddleware creates a Gin middleware for rate limiting by client IP
func RateLimitMiddleware(limiter ratelimit.RateLimiter, limit ratelimit.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:http:%s", c.ClientIP())

		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter.Round(time.Second)/time.Second), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too Many Requests",
				"retry_after": res.RetryAfter.String(),
			})
			return
		}

		c.Next()
	}
}

// GRPCRateLimitInterceptor gRPC 限流拦截器，按对端地址限流
func GRPCRateLimitInterceptor(limiter ratelimit.RateLimiter, limit ratelimit.Limit) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		key := "ratelimit:grpc:unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			key = "ratelimit:grpc:" + p.Addr.String()
		}

		res, err := limiter.Allow(ctx, key, limit)
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable", "error", err)
			return handler(ctx, req)
		}
		if !res.Allowed {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry after %s", res.RetryAfter)
		}
		return handler(ctx, req)
	}
}
