package logging

import "strings"

// ProgressSampler thins out per-item progress logs. It reports true for the
// first observation of a phase, whenever completion crosses into a new step
// (a share of the total, in percent), and for the final item.
type ProgressSampler struct {
	step  int
	phase string
	last  int
}

// NewProgressSampler returns a sampler emitting every step percent. Steps
// outside 1..100 fall back to 10.
func NewProgressSampler(step int) *ProgressSampler {
	if step <= 0 || step > 100 {
		step = 10
	}
	return &ProgressSampler{step: step, last: -1}
}

// Observe records completed of total for phase. A nil sampler logs
// everything. Unknown totals (<= 0) only log phase changes.
func (s *ProgressSampler) Observe(phase string, completed, total int) bool {
	if s == nil {
		return true
	}
	emit := false
	if phase = strings.TrimSpace(phase); phase != s.phase {
		s.phase = phase
		s.last = -1
		emit = true
	}
	if total <= 0 {
		return emit
	}
	completed = min(max(completed, 0), total)
	if completed == total && s.last != 100/s.step+1 {
		s.last = 100/s.step + 1
		return true
	}
	if bucket := completed * 100 / total / s.step; bucket > s.last {
		s.last = bucket
		emit = true
	}
	return emit
}

// Reset forgets the current phase so the next observation logs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.phase = ""
	s.last = -1
}
