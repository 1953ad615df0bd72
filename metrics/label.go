package metrics

// Label 指标标签
//
// 标签值应保持低基数：依赖名、路由模板、状态类可以作为标签，
// 用户名、请求 ID 这类值不可以。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("dependency", "user-service"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
