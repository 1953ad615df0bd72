package testkit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/resilience"
)

// TestPolicy 便于在测试中触发状态转换的小窗口策略
var TestPolicy = breaker.Policy{
	WindowSize:                   4,
	FailureRateThreshold:         0.5,
	MinimumCalls:                 2,
	WaitDuration:                 time.Minute,
	PermittedTrialCalls:          1,
	RequiredConsecutiveSuccesses: 1,
}

// NewGuard 返回使用 TestPolicy 与默认错误分类的 Guard
func NewGuard(t *testing.T, opts ...breaker.Option) *resilience.Guard {
	t.Helper()
	reg, err := breaker.NewRegistry(&breaker.Config{Default: TestPolicy}, opts...)
	require.NoError(t, err)
	return resilience.NewGuard(reg, nil, nil)
}

// Envelope 解码后的响应，Data 保留原始 JSON 以便按需解析
type Envelope struct {
	Code    int
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Status  int             `json:"status"`
}

// Into 将 Data 解析到 v
func (e *Envelope) Into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, v), "data: %s", e.Data)
}

// Do 对 handler 发起一次 JSON 请求并解码响应
func Do(t *testing.T, h http.Handler, method, path string, body any) *Envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	env := &Envelope{Code: w.Code}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), env), "body: %s", w.Body.String())
	return env
}
