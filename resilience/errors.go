package resilience

import (
	"fmt"

	"github.com/ceyewan/workhub/metrics"
)

// panicError 受保护操作中的 panic
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("resilience: operation panicked: %v", e.value)
}

func noopCounter() metrics.Counter {
	c, _ := metrics.Discard().Counter(MetricFallbacksTotal, "")
	return c
}
