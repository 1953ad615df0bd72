package resilience

// Category 受保护操作的类别，决定降级响应的形状
type Category int

const (
	// List 列表查询，降级时 data 为空集合
	List Category = iota
	// SingleLookup 单条查询
	SingleLookup
	// Modify 创建或更新
	Modify
	// Action 删除或状态流转
	Action
)

func (c Category) String() string {
	switch c {
	case List:
		return "list"
	case SingleLookup:
		return "single_lookup"
	case Modify:
		return "modify"
	case Action:
		return "action"
	default:
		return "unknown"
	}
}

// Cause 降级原因
type Cause int

const (
	// CauseBreakerOpen 熔断器拒绝准入，操作未执行
	CauseBreakerOpen Cause = iota
	// CauseDependencyUnavailable 操作已执行，失败计入熔断统计
	CauseDependencyUnavailable
)

func (c Cause) String() string {
	if c == CauseBreakerOpen {
		return "breaker_open"
	}
	return "dependency_unavailable"
}
