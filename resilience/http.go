package resilience

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/xerrors"
)

// StatusClientClosedRequest 客户端主动断开
const StatusClientClosedRequest = 499

// Respond 以 Envelope.Status 写出 JSON 响应
func Respond(c *gin.Context, env Envelope) {
	if env.Status == 0 {
		env.Status = http.StatusOK
	}
	c.JSON(env.Status, env)
}

// RespondError 将 Guard 放行的业务错误映射为 HTTP 状态并写出
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	Respond(c, Failed(status, errorMessage(err)))
}

// Handle 组合 Execute 与响应写出，是 handler 中最常用的形式
func (g *Guard) Handle(c *gin.Context, dependency string, category Category, id string, op Operation) {
	env, err := g.Execute(c.Request.Context(), dependency, category, id, op)
	if err != nil {
		RespondError(c, err)
		return
	}
	if env.Degraded {
		metrics.MarkDegraded(c)
	}
	Respond(c, env)
}

// StatusFor 返回错误对应的 HTTP 状态码
func StatusFor(err error) int {
	switch xerrors.KindOf(err) {
	case xerrors.KindNotFound:
		return http.StatusNotFound
	case xerrors.KindConflict:
		return http.StatusConflict
	case xerrors.KindInvalidInput:
		return http.StatusBadRequest
	case xerrors.KindUnauthorized:
		return http.StatusUnauthorized
	case xerrors.KindForbidden:
		return http.StatusForbidden
	case xerrors.KindUnavailable:
		return http.StatusServiceUnavailable
	case xerrors.KindTimeout:
		return http.StatusGatewayTimeout
	case xerrors.KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage 返回面向调用方的消息，内部错误不暴露细节
func errorMessage(err error) string {
	if StatusFor(err) == http.StatusInternalServerError {
		return http.StatusText(http.StatusInternalServerError)
	}
	return err.Error()
}
