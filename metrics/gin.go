package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

const degradedKey = "metrics.degraded"

// MarkDegraded 标记本次响应为熔断降级，GinHTTPMiddleware 会将 outcome 记为 degraded
func MarkDegraded(c *gin.Context) {
	c.Set(degradedKey, true)
}

// GinHTTPMiddleware 记录入站请求指标，未命中路由的请求统一记为 unknown，避免原始路径造成高基数
func GinHTTPMiddleware(httpMetrics *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpMetrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnknownRoute
		}
		status := c.Writer.Status()
		outcome := HTTPOutcome(status)
		if c.GetBool(degradedKey) {
			outcome = OutcomeDegraded
		}
		httpMetrics.observeOutcome(c.Request.Context(), c.Request.Method, route, status, outcome, time.Since(start))
	}
}
