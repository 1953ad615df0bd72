package metrics

import "strconv"

const (
	// 常见的标签
	LabelService     = "service"
	LabelOperation   = "operation"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelOutcome     = "outcome"
	LabelPeer        = "peer"
)

const (
	// 常见的操作
	OperationHTTPServer = "http.server"
	OperationHTTPClient = "http.client"
)

const (
	// 常见的结果
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
)

const (
	// 未知路由
	UnknownRoute = "unknown"
)

// HTTPStatusClass 返回 HTTP 状态类标签值：1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPOutcome 将 HTTP 状态代码映射到常见的结果
func HTTPOutcome(status int) string {
	if status >= 200 && status < 400 {
		return OutcomeSuccess
	}
	return OutcomeError
}
