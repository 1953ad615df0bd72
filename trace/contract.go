package trace

const (
	// AttrError 人类可读的失败摘要
	AttrError = "error"
	// AttrExceptionType 底层错误的类型
	AttrExceptionType = "exception.type"
	// AttrExceptionMessage 底层错误的消息
	AttrExceptionMessage = "exception.message"

	// AttrPeerService 对端服务名
	AttrPeerService = "peer.service"
	// AttrDependency 熔断保护的依赖名
	AttrDependency = "workhub.dependency"
)

// SpanNamePeerCall 返回调用对端服务的标准 Span Name
func SpanNamePeerCall(peer, method string) string {
	if peer == "" {
		return "peer." + method
	}
	return "peer." + method + " " + peer
}
