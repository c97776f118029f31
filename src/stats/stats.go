// Package stats keeps process-lifetime pipeline counters. Held in
// memory only, reset on restart.
package stats

import (
	"fmt"
	"sync"
	"time"
)

type Counters struct {
	mu            sync.Mutex
	start         time.Time
	totalRequests int
	bankMatches   int
	modelCalls    int
	successes     int
	failures      int
}

func New() *Counters {
	return &Counters{start: time.Now()}
}

func (c *Counters) Request()   { c.add(&c.totalRequests) }
func (c *Counters) BankMatch() { c.add(&c.bankMatches) }
func (c *Counters) ModelCall() { c.add(&c.modelCalls) }
func (c *Counters) Success()   { c.add(&c.successes) }
func (c *Counters) Failure()   { c.add(&c.failures) }

func (c *Counters) add(field *int) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Runtime       time.Duration
	TotalRequests int
	BankMatches   int
	ModelCalls    int
	Successes     int
	Failures      int
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Runtime:       time.Since(c.start),
		TotalRequests: c.totalRequests,
		BankMatches:   c.bankMatches,
		ModelCalls:    c.modelCalls,
		Successes:     c.successes,
		Failures:      c.failures,
	}
}

// SuccessRate is in percent; zero requests yields 0.
func (s Snapshot) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.TotalRequests) * 100
}

// Summary renders the block printed at shutdown and on the stats hotkey.
func (s Snapshot) Summary() string {
	return fmt.Sprintf(`=== 运行统计 ===
运行时间: %.1f 小时
总请求数: %d
成功答题: %d
失败答题: %d
题库匹配: %d
API调用: %d
成功率: %.1f%%
===============`,
		s.Runtime.Hours(), s.TotalRequests, s.Successes, s.Failures,
		s.BankMatches, s.ModelCalls, s.SuccessRate())
}
