package interceptors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	apiutil "github.com/kasmail/kasmail-server/api/util"
	"github.com/kasmail/kasmail-server/global"
)

const (
	LimitRequestsPerSecond = 5
	LimitSendPerSecond     = 1
)

var sendPath = regexp.MustCompile("^/api/v.*/messages$")

// rateLimitKey fingerprints the caller and picks the limit for the route
func rateLimitKey(c *gin.Context) (string, int) {
	ip, ipErr := apiutil.GetIPFromContext(c)
	if ipErr != nil || ip == nil {
		unkn := "unknown"
		ip = &unkn
	}
	userAgent := c.GetHeader("User-Agent")
	acceptLanguage := c.GetHeader("Accept-Language")
	referer := c.GetHeader("Referer")
	all := fmt.Sprintf("%s%s%s%s", *ip, userAgent, acceptLanguage, referer)
	for _, cookie := range c.Request.Cookies() {
		all = fmt.Sprintf("%s%s%s", all, cookie.Name, cookie.Value)
	}

	limit := LimitRequestsPerSecond
	if c.Request.Method == http.MethodPost && sendPath.MatchString(c.Request.URL.Path) {
		limit = LimitSendPerSecond
		all = fmt.Sprintf("%s%s", all, "_send")
	}
	return strconv.FormatUint(xxhash.Sum64String(all), 10), limit
}

func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if global.RateLimiter == nil {
			c.Next()
			return
		}
		key, limit := rateLimitKey(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
		defer cancel()

		result, err := global.RateLimiter.Allow(ctx, key, redis_rate.PerSecond(limit))
		if err != nil {
			level.Error(global.Logger).Log("msg", "rate limit check failed", "err", err)
			c.AbortWithError(http.StatusInternalServerError, errors.New("failed to perform rate limit check"))
			return
		}
		if result.Allowed <= 0 {
			c.AbortWithError(http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit.Rate))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Writer.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetAfter.Milliseconds())))
		c.Next()
	}
}
