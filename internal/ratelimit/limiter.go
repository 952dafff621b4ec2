// Package ratelimit budgets MCP tool calls. Each tool gets its own call
// budget: a burst that is spent immediately and earned back at a fixed
// number of calls per minute.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Tool names with a default budget.
const (
	ToolSimulate = "dass_simulate"
	ToolClassify = "dass_classify"
	ToolRuns     = "dass_runs"
)

// Budget is the call allowance for one tool. A zero PerMinute never earns
// calls back once the burst is spent.
type Budget struct {
	PerMinute int
	Burst     int
}

// DefaultBudgets are the budgets NewToolLimiters applies. Simulation is the
// only expensive call; classification and listing are cheap.
var DefaultBudgets = map[string]Budget{
	ToolSimulate: {PerMinute: 10, Burst: 3},
	ToolClassify: {PerMinute: 300, Burst: 50},
	ToolRuns:     {PerMinute: 60, Burst: 10},
}

// interval is the time it takes to earn one call back.
func (b Budget) interval() time.Duration {
	if b.PerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(b.PerMinute)
}

// Limiter enforces one Budget. It tracks the time at which the budget is
// next fully earned back (the theoretical arrival time of the next call),
// so all arithmetic stays in whole nanoseconds. It is safe for concurrent
// use.
type Limiter struct {
	mu     sync.Mutex
	budget Budget
	next   time.Time // zero until the first call
	spent  int       // calls taken, only used when PerMinute is zero
	now    func() time.Time
}

// NewLimiter returns a limiter with the full burst available.
func NewLimiter(b Budget) *Limiter {
	if b.Burst < 1 {
		b.Burst = 1
	}
	return &Limiter{budget: b, now: time.Now}
}

// Take spends one call. When the budget is exhausted it returns false and
// the wait until the next call is earned; the wait is zero when calls are
// never earned back.
func (l *Limiter) Take() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	interval := l.budget.interval()
	if interval == 0 {
		if l.spent >= l.budget.Burst {
			return false, 0
		}
		l.spent++
		return true, 0
	}

	now := l.now()
	next := l.next
	if next.Before(now) {
		next = now
	}
	slack := time.Duration(l.budget.Burst-1) * interval
	if ahead := next.Sub(now); ahead > slack {
		return false, ahead - slack
	}
	l.next = next.Add(interval)
	return true, 0
}

// ExceededError reports a tool call rejected by its budget.
type ExceededError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("rate limit exceeded for %s", e.Tool)
	}
	secs := math.Ceil(e.RetryAfter.Seconds())
	return fmt.Sprintf("rate limit exceeded for %s, retry in %.0fs", e.Tool, secs)
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters builds a limiter per entry in DefaultBudgets.
func NewToolLimiters() ToolLimiters {
	limiters := make(ToolLimiters, len(DefaultBudgets))
	for tool, b := range DefaultBudgets {
		limiters[tool] = NewLimiter(b)
	}
	return limiters
}

// CheckLimit spends one call from the tool's budget. Tools without a
// limiter are never limited. A rejected call returns *ExceededError.
func CheckLimit(limiters ToolLimiters, tool string) error {
	limiter, ok := limiters[tool]
	if !ok {
		return nil
	}
	if ok, wait := limiter.Take(); !ok {
		return &ExceededError{Tool: tool, RetryAfter: wait}
	}
	return nil
}
