// Package resilience 将熔断器与降级响应组合成统一的调用保护层。
//
// 三个部件：
//   - Guard：对一次受保护调用做准入、执行、结果记录
//   - Classifier：判断错误是否计入熔断失败（依赖故障）还是业务错误（原样返回）
//   - Dispatcher：把拒绝准入或依赖故障转换为 503 降级 Envelope，并记录日志、指标与链路标签
//
// 使用示例：
//
//	guard := resilience.NewGuard(registry, classifier, dispatcher)
//	env, err := guard.Execute(ctx, "user-service", resilience.SingleLookup, username,
//		func(ctx context.Context) (resilience.Envelope, error) {
//			u, err := svc.Get(ctx, username)
//			if err != nil {
//				return resilience.Envelope{}, err
//			}
//			return resilience.OK("User is successfully retrieved", u), nil
//		})
//	if err != nil {
//		// 业务错误，例如 404/409
//	}
package resilience

import "net/http"

// Envelope 统一响应结构，成功与降级都使用它
//
// 序列化为 {"message": ..., "data": ..., "status": ...}，data 为空时省略；
// Degraded 不参与序列化，降级由 503 状态码体现。
type Envelope struct {
	Message  string `json:"message"`
	Data     any    `json:"data,omitempty"`
	Status   int    `json:"status"`
	Degraded bool   `json:"-"`
}

// OK 返回 200 Envelope
func OK(message string, data any) Envelope {
	return Envelope{Message: message, Data: data, Status: http.StatusOK}
}

// Created 返回 201 Envelope
func Created(message string, data any) Envelope {
	return Envelope{Message: message, Data: data, Status: http.StatusCreated}
}

// Failed 返回业务错误 Envelope
func Failed(status int, message string) Envelope {
	return Envelope{Message: message, Status: status}
}
