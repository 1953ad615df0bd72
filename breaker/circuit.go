package breaker

import (
	"sync"
	"time"
)

// transition 一次状态切换，由调用方在释放锁之后上报
type transition struct {
	from, to State
}

// circuit 单个依赖的熔断状态机
//
// 所有字段由 mu 保护：状态切换、窗口写入、半开名额的扣减都在同一把锁内完成，
// 因此并发调用者不会重复触发 Closed -> Open，也不会超额放行探测调用。
type circuit struct {
	name   string
	policy Policy
	now    func() time.Time

	mu             sync.Mutex
	state          State
	window         *window
	openedAt       time.Time
	generation     uint64
	trialsIssued   int
	trialSuccesses int
}

func newCircuit(name string, policy Policy, now func() time.Time) *circuit {
	return &circuit{
		name:   name,
		policy: policy,
		now:    now,
		state:  StateClosed,
		window: newWindow(policy.WindowSize),
	}
}

// acquire 判断是否准入，返回本次准入所属的代数
func (c *circuit) acquire() (gen uint64, admitted bool, t *transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		if c.shouldTrip() {
			return c.generation, false, c.setState(StateOpen)
		}
		return c.generation, true, nil

	case StateOpen:
		if c.now().Sub(c.openedAt) < c.policy.WaitDuration {
			return c.generation, false, nil
		}
		t = c.setState(StateHalfOpen)
		c.trialsIssued = 1
		return c.generation, true, t

	default: // StateHalfOpen
		if c.trialsIssued >= c.policy.PermittedTrialCalls {
			return c.generation, false, nil
		}
		c.trialsIssued++
		return c.generation, true, nil
	}
}

// record 写入一次调用结果，代数不匹配的结果（状态已切换）直接丢弃
func (c *circuit) record(gen uint64, o Outcome) (accepted bool, t *transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false, nil
	}
	return c.recordLocked(o)
}

// report 以当前代数写入结果
func (c *circuit) report(o Outcome) (accepted bool, t *transition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordLocked(o)
}

func (c *circuit) recordLocked(o Outcome) (bool, *transition) {
	switch c.state {
	case StateClosed:
		c.window.add(o)
		if c.shouldTrip() {
			return true, c.setState(StateOpen)
		}
		return true, nil

	case StateHalfOpen:
		if o == Failure {
			return true, c.setState(StateOpen)
		}
		c.trialSuccesses++
		if c.trialSuccesses >= c.policy.RequiredConsecutiveSuccesses {
			return true, c.setState(StateClosed)
		}
		return true, nil

	default: // StateOpen
		return false, nil
	}
}

// release 归还一个未产生结果的准入名额（例如业务错误），不改变状态
func (c *circuit) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == c.generation && c.state == StateHalfOpen && c.trialsIssued > 0 {
		c.trialsIssued--
	}
}

func (c *circuit) shouldTrip() bool {
	return c.window.size >= c.policy.MinimumCalls &&
		c.window.failureRate() >= c.policy.FailureRateThreshold
}

// setState 切换状态并清空窗口与计数器，调用方必须持有锁
func (c *circuit) setState(to State) *transition {
	from := c.state
	c.state = to
	c.generation++
	c.window.reset()
	c.trialsIssued = 0
	c.trialSuccesses = 0
	if to == StateOpen {
		c.openedAt = c.now()
	} else if to == StateClosed {
		c.openedAt = time.Time{}
	}
	return &transition{from: from, to: to}
}

func (c *circuit) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Name:           c.name,
		State:          c.state,
		Calls:          c.window.size,
		Failures:       c.window.failures,
		FailureRate:    c.window.failureRate(),
		OpenedAt:       c.openedAt,
		TrialsIssued:   c.trialsIssued,
		TrialSuccesses: c.trialSuccesses,
		Policy:         c.policy,
	}
}

func (c *circuit) reset() *transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		c.generation++
		c.window.reset()
		return nil
	}
	return c.setState(StateClosed)
}

// Snapshot 熔断器某一时刻的只读视图
type Snapshot struct {
	Name           string
	State          State
	Calls          int
	Failures       int
	FailureRate    float64
	OpenedAt       time.Time
	TrialsIssued   int
	TrialSuccesses int
	Policy         Policy
}
