package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/workhub/xerrors"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func scenarioPolicy() Policy {
	return Policy{
		WindowSize:                   10,
		FailureRateThreshold:         0.5,
		MinimumCalls:                 4,
		WaitDuration:                 30 * time.Second,
		PermittedTrialCalls:          3,
		RequiredConsecutiveSuccesses: 2,
	}
}

func newTestRegistry(t *testing.T, p Policy) (*Registry, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	reg, err := NewRegistry(&Config{Default: p}, WithClock(clock.Now))
	require.NoError(t, err)
	return reg, clock
}

func feed(t *testing.T, reg *Registry, name string, outcomes ...Outcome) {
	t.Helper()
	for _, o := range outcomes {
		permit, ok := reg.Allow(name)
		require.True(t, ok, "call should be admitted")
		permit.Done(o)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
		ok     bool
	}{
		{"default", func(p *Policy) {}, true},
		{"window zero", func(p *Policy) { p.WindowSize = 0 }, false},
		{"threshold zero", func(p *Policy) { p.FailureRateThreshold = 0 }, false},
		{"threshold above one", func(p *Policy) { p.FailureRateThreshold = 1.5 }, false},
		{"threshold one", func(p *Policy) { p.FailureRateThreshold = 1 }, true},
		{"minimum calls above window", func(p *Policy) { p.MinimumCalls = 11 }, false},
		{"negative wait", func(p *Policy) { p.WaitDuration = -time.Second }, false},
		{"no trial calls", func(p *Policy) { p.PermittedTrialCalls = 0 }, false},
		{"required above permitted", func(p *Policy) { p.RequiredConsecutiveSuccesses = 4 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrConfigNil)
	assert.NoError(t, (&Config{}).Validate())

	cfg := &Config{Dependencies: map[string]Policy{"": {}}}
	assert.ErrorIs(t, cfg.Validate(), ErrNameEmpty)

	cfg = &Config{Dependencies: map[string]Policy{"task-service": {WindowSize: 2}}}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPolicy)
	assert.Zero(t, cfg.Default.WindowSize, "Validate must not fill defaults into the config")
}

func TestNewRegistry(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewRegistry(nil)
		assert.ErrorIs(t, err, ErrConfigNil)
	})

	t.Run("invalid default fails eagerly", func(t *testing.T) {
		_, err := NewRegistry(&Config{Default: Policy{FailureRateThreshold: 2}})
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("invalid override fails eagerly", func(t *testing.T) {
		_, err := NewRegistry(&Config{
			Default:      scenarioPolicy(),
			Dependencies: map[string]Policy{"user-service": {MinimumCalls: 50}},
		})
		assert.ErrorIs(t, err, ErrInvalidPolicy)
		assert.Contains(t, err.Error(), "user-service")
	})

	t.Run("override inherits unset fields", func(t *testing.T) {
		reg, err := NewRegistry(&Config{
			Default:      scenarioPolicy(),
			Dependencies: map[string]Policy{"user-service": {WaitDuration: 5 * time.Second}},
		})
		require.NoError(t, err)

		p := reg.PolicyFor("user-service")
		assert.Equal(t, 5*time.Second, p.WaitDuration)
		assert.Equal(t, 10, p.WindowSize)
		assert.Equal(t, 30*time.Second, reg.PolicyFor("task-service").WaitDuration)
	})

	t.Run("empty config uses defaults", func(t *testing.T) {
		reg, err := NewRegistry(&Config{})
		require.NoError(t, err)
		assert.Equal(t, DefaultPolicy(), reg.PolicyFor("anything"))
	})
}

func TestTripAndRecoverScenario(t *testing.T) {
	reg, clock := newTestRegistry(t, scenarioPolicy())
	const dep = "project-service"

	// F,F,F,S：4 次调用，失败率 75%
	feed(t, reg, dep, Failure, Failure, Failure, Success)
	assert.Equal(t, StateOpen, reg.State(dep))

	clock.Advance(10 * time.Second)
	assert.False(t, reg.Acquire(dep), "open breaker refuses before wait duration")
	assert.Equal(t, StateOpen, reg.State(dep))

	clock.Advance(21 * time.Second)
	permit, ok := reg.Allow(dep)
	require.True(t, ok, "first admission after wait duration is granted")

	snap := reg.Snapshot(dep)
	assert.Equal(t, StateHalfOpen, snap.State)
	assert.Equal(t, 1, snap.TrialsIssued)

	permit.Done(Success)
	feed(t, reg, dep, Success)

	snap = reg.Snapshot(dep)
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.Calls, "window resets on close")
	assert.True(t, snap.OpenedAt.IsZero())
}

func TestMinimumCallsGate(t *testing.T) {
	reg, _ := newTestRegistry(t, scenarioPolicy())
	const dep = "db"

	feed(t, reg, dep, Failure, Failure, Failure)
	assert.Equal(t, StateClosed, reg.State(dep), "three outcomes are below minimum calls")

	feed(t, reg, dep, Failure)
	assert.Equal(t, StateOpen, reg.State(dep))
}

func TestBelowThresholdStaysClosed(t *testing.T) {
	reg, _ := newTestRegistry(t, scenarioPolicy())
	const dep = "db"

	feed(t, reg, dep, Failure, Success, Success, Success, Failure, Success, Success)
	snap := reg.Snapshot(dep)
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 7, snap.Calls)
	assert.Equal(t, 2, snap.Failures)
}

func TestWindowEvictsOldest(t *testing.T) {
	p := scenarioPolicy()
	p.WindowSize = 4
	p.MinimumCalls = 4
	reg, _ := newTestRegistry(t, p)
	const dep = "db"

	// 窗口最多保留 4 个结果，前两个失败被挤出后失败率始终低于 50%
	feed(t, reg, dep, Failure, Success, Success, Success)
	feed(t, reg, dep, Success, Success, Failure)

	snap := reg.Snapshot(dep)
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 4, snap.Calls)
	assert.Equal(t, 1, snap.Failures)

	feed(t, reg, dep, Failure)
	assert.Equal(t, StateOpen, reg.State(dep))
}

func TestHalfOpenTrialBudget(t *testing.T) {
	reg, clock := newTestRegistry(t, scenarioPolicy())
	const dep = "task-service"

	feed(t, reg, dep, Failure, Failure, Failure, Failure)
	clock.Advance(30 * time.Second)

	var permits []Permit
	for i := 0; i < 3; i++ {
		p, ok := reg.Allow(dep)
		require.True(t, ok, "trial %d should be admitted", i+1)
		permits = append(permits, p)
	}

	assert.False(t, reg.Acquire(dep), "admissions beyond the trial budget are refused")
	assert.Equal(t, StateHalfOpen, reg.State(dep))

	permits[0].Done(Success)
	assert.False(t, reg.Acquire(dep), "budget is not refilled by a success")
	permits[1].Done(Success)
	assert.Equal(t, StateClosed, reg.State(dep))

	// 切换后迟到的探测结果被丢弃
	permits[2].Done(Failure)
	snap := reg.Snapshot(dep)
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.Calls)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	reg, clock := newTestRegistry(t, scenarioPolicy())
	const dep = "user-service"

	feed(t, reg, dep, Failure, Failure, Failure, Failure)
	clock.Advance(30 * time.Second)

	feed(t, reg, dep, Success)
	reopenAt := clock.Now()
	feed(t, reg, dep, Failure)

	snap := reg.Snapshot(dep)
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, reopenAt, snap.OpenedAt)

	clock.Advance(29 * time.Second)
	assert.False(t, reg.Acquire(dep))
	clock.Advance(time.Second)
	assert.True(t, reg.Acquire(dep))
}

func TestAcquireReport(t *testing.T) {
	reg, _ := newTestRegistry(t, scenarioPolicy())
	const dep = "db"

	for i := 0; i < 4; i++ {
		require.True(t, reg.Acquire(dep))
		reg.Report(dep, Failure)
	}
	assert.Equal(t, StateOpen, reg.State(dep))

	// Open 状态下的结果不会写入窗口
	reg.Report(dep, Failure)
	assert.Zero(t, reg.Snapshot(dep).Calls)
}

func TestReset(t *testing.T) {
	reg, _ := newTestRegistry(t, scenarioPolicy())
	const dep = "db"

	feed(t, reg, dep, Failure, Failure, Failure, Failure)
	require.Equal(t, StateOpen, reg.State(dep))

	reg.Reset(dep)
	assert.Equal(t, StateClosed, reg.State(dep))
	assert.True(t, reg.Acquire(dep))
}

func TestRegistrySharesCircuit(t *testing.T) {
	reg, _ := newTestRegistry(t, scenarioPolicy())

	const workers = 64
	circuits := make([]*circuit, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			circuits[i] = reg.get("fresh")
		}(i)
	}
	close(start)
	wg.Wait()

	for _, c := range circuits {
		assert.Same(t, circuits[0], c)
	}
	assert.Equal(t, []string{"fresh"}, reg.Names())
}

func TestConcurrentBoundaryAcquire(t *testing.T) {
	p := scenarioPolicy()
	p.PermittedTrialCalls = 1
	p.RequiredConsecutiveSuccesses = 1
	reg, clock := newTestRegistry(t, p)
	const dep = "user-service"

	feed(t, reg, dep, Failure, Failure, Failure, Failure)
	clock.Advance(p.WaitDuration)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if reg.Acquire(dep) {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	snap := reg.Snapshot(dep)
	assert.Equal(t, StateHalfOpen, snap.State)
	assert.Equal(t, 1, snap.TrialsIssued)
}

func TestConcurrentTrialBudget(t *testing.T) {
	reg, clock := newTestRegistry(t, scenarioPolicy())
	const dep = "task-service"

	feed(t, reg, dep, Failure, Failure, Failure, Failure)
	clock.Advance(30 * time.Second)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if reg.Acquire(dep) {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(3), admitted.Load())
	assert.Equal(t, 3, reg.Snapshot(dep).TrialsIssued)
}

func TestConcurrentOutcomesTripOnce(t *testing.T) {
	reg, _ := newTestRegistry(t, scenarioPolicy())
	const dep = "db"

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if permit, ok := reg.Allow(dep); ok {
				permit.Done(Failure)
			}
		}()
	}
	wg.Wait()

	snap := reg.Snapshot(dep)
	assert.Equal(t, StateOpen, snap.State)
	assert.Zero(t, snap.Calls)
}

func TestDo(t *testing.T) {
	errDown := xerrors.Wrap(xerrors.ErrUnavailable, "connection refused")
	errBusiness := xerrors.Wrap(xerrors.ErrNotFound, "no such user")
	counts := func(err error) bool { return !errors.Is(err, xerrors.ErrNotFound) }

	t.Run("business errors are not counted", func(t *testing.T) {
		reg, _ := newTestRegistry(t, scenarioPolicy())
		for i := 0; i < 10; i++ {
			err := reg.Do(context.Background(), "user-service", func(context.Context) error {
				return errBusiness
			}, counts)
			assert.ErrorIs(t, err, xerrors.ErrNotFound)
		}
		snap := reg.Snapshot("user-service")
		assert.Equal(t, StateClosed, snap.State)
		assert.Zero(t, snap.Calls)
	})

	t.Run("counted errors trip and short circuit", func(t *testing.T) {
		reg, _ := newTestRegistry(t, scenarioPolicy())
		calls := 0
		fn := func(context.Context) error {
			calls++
			return errDown
		}
		for i := 0; i < 4; i++ {
			assert.ErrorIs(t, reg.Do(context.Background(), "user-service", fn, counts), xerrors.ErrUnavailable)
		}

		err := reg.Do(context.Background(), "user-service", fn, counts)
		assert.ErrorIs(t, err, ErrOpenState)
		assert.ErrorIs(t, err, xerrors.ErrUnavailable)
		assert.Equal(t, 4, calls, "refused calls never run")
	})

	t.Run("business error releases trial slot", func(t *testing.T) {
		p := scenarioPolicy()
		p.PermittedTrialCalls = 1
		p.RequiredConsecutiveSuccesses = 1
		reg, clock := newTestRegistry(t, p)
		feed(t, reg, "user-service", Failure, Failure, Failure, Failure)
		clock.Advance(p.WaitDuration)

		err := reg.Do(context.Background(), "user-service", func(context.Context) error {
			return errBusiness
		}, counts)
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
		assert.Equal(t, StateHalfOpen, reg.State("user-service"))

		err = reg.Do(context.Background(), "user-service", func(context.Context) error { return nil }, counts)
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, reg.State("user-service"))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "failure", OutcomeOf(false).String())
	assert.Equal(t, "success", OutcomeOf(true).String())
}
