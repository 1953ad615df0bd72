package breaker

import (
	"context"

	"github.com/ceyewan/workhub/metrics"
)

// 指标常量定义
const (
	// MetricAdmissionsTotal 准入判定次数 (Counter)
	MetricAdmissionsTotal = "breaker_admissions_total"

	// MetricOutcomesTotal 被记录的调用结果数 (Counter)
	MetricOutcomesTotal = "breaker_outcomes_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "breaker_state_changes_total"

	// LabelDependency 依赖名标签
	LabelDependency = "dependency"

	// LabelResult 结果标签 (admitted/rejected, success/failure)
	LabelResult = "result"

	// LabelFromState 源状态标签
	LabelFromState = "from_state"

	// LabelToState 目标状态标签
	LabelToState = "to_state"
)

type breakerMetrics struct {
	admissions   metrics.Counter
	outcomes     metrics.Counter
	stateChanges metrics.Counter
}

func newBreakerMetrics(m metrics.Meter) (*breakerMetrics, error) {
	admissions, err := m.Counter(MetricAdmissionsTotal, "熔断器准入判定次数")
	if err != nil {
		return nil, err
	}
	outcomes, err := m.Counter(MetricOutcomesTotal, "熔断器记录的调用结果数")
	if err != nil {
		return nil, err
	}
	stateChanges, err := m.Counter(MetricStateChanges, "熔断器状态变更次数")
	if err != nil {
		return nil, err
	}
	return &breakerMetrics{
		admissions:   admissions,
		outcomes:     outcomes,
		stateChanges: stateChanges,
	}, nil
}

func (bm *breakerMetrics) admission(name string, admitted bool) {
	result := "admitted"
	if !admitted {
		result = "rejected"
	}
	bm.admissions.Inc(context.Background(), metrics.L(LabelDependency, name), metrics.L(LabelResult, result))
}

func (bm *breakerMetrics) outcome(name string, o Outcome) {
	bm.outcomes.Inc(context.Background(), metrics.L(LabelDependency, name), metrics.L(LabelResult, o.String()))
}

func (bm *breakerMetrics) stateChange(name string, t *transition) {
	bm.stateChanges.Inc(context.Background(),
		metrics.L(LabelDependency, name),
		metrics.L(LabelFromState, t.from.String()),
		metrics.L(LabelToState, t.to.String()),
	)
}
