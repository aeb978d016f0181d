// Package learning tracks per-pattern task outcomes and exposes a
// confidence adjustment consumed by the decomposer. The model is a
// bounded success-ratio counter, not a trained one.
package learning

import (
	"sync"

	"github.com/kestrelops/hive/pkg/models"
)

// minSamples is how many outcomes a pattern needs before its observed
// ratio moves the base confidence at all.
const minSamples = 5

// outcome holds success/failure counters for one pattern.
type outcome struct {
	succeeded int
	failed    int
}

// PatternLearner accumulates task outcomes keyed by the pattern (or
// task type) that produced the work.
type PatternLearner struct {
	outcomes map[string]*outcome
	mu       sync.RWMutex
}

// New creates an empty PatternLearner.
func New() *PatternLearner {
	return &PatternLearner{outcomes: make(map[string]*outcome)}
}

// Record registers one task outcome under a pattern key.
func (l *PatternLearner) Record(pattern string, success bool) {
	if pattern == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.outcomes[pattern]
	if !ok {
		o = &outcome{}
		l.outcomes[pattern] = o
	}
	if success {
		o.succeeded++
	} else {
		o.failed++
	}
}

// RecordTask registers a finished task under the pattern that generated
// it, so the demotion feeds back into the same table entry the
// decomposer looks up. Tasks without a pattern fall back to their type.
func (l *PatternLearner) RecordTask(task *models.Task, success bool) {
	key := task.Pattern
	if key == "" {
		key = string(task.Type)
	}
	l.Record(key, success)
}

// Adjust scales a base confidence by the observed success ratio once a
// pattern has enough samples. The result stays in (0, base]: learning
// can demote an unreliable pattern but never promote one past its
// table confidence.
func (l *PatternLearner) Adjust(pattern string, base float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.outcomes[pattern]
	if !ok {
		return base
	}
	total := o.succeeded + o.failed
	if total < minSamples {
		return base
	}
	ratio := float64(o.succeeded) / float64(total)
	if ratio >= 0.5 {
		return base
	}
	// Below an even split, scale the confidence down linearly: a
	// pattern that always fails keeps half its table confidence.
	return base * (0.5 + ratio)
}

// SuccessRatio returns the observed ratio and sample count for a
// pattern. The ratio is 0 with no samples.
func (l *PatternLearner) SuccessRatio(pattern string) (float64, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.outcomes[pattern]
	if !ok {
		return 0, 0
	}
	total := o.succeeded + o.failed
	if total == 0 {
		return 0, 0
	}
	return float64(o.succeeded) / float64(total), total
}
