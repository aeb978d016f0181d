package learning

import (
	"testing"

	"github.com/kestrelops/hive/pkg/models"
)

func TestAdjustUnknownPatternReturnsBase(t *testing.T) {
	l := New()
	if got := l.Adjust("api-development", 0.9); got != 0.9 {
		t.Errorf("Adjust = %v, want base 0.9", got)
	}
}

func TestAdjustNeedsMinimumSamples(t *testing.T) {
	l := New()
	for i := 0; i < minSamples-1; i++ {
		l.Record("api-development", false)
	}
	if got := l.Adjust("api-development", 0.9); got != 0.9 {
		t.Errorf("Adjust = %v, want base with too few samples", got)
	}
}

func TestAdjustDemotesFailingPattern(t *testing.T) {
	l := New()
	for i := 0; i < 10; i++ {
		l.Record("api-development", false)
	}
	got := l.Adjust("api-development", 0.9)
	if got >= 0.9 {
		t.Errorf("Adjust = %v, want demotion below 0.9", got)
	}
	if got != 0.45 {
		t.Errorf("Adjust = %v, want 0.45 for all-failure pattern", got)
	}
}

func TestAdjustNeverPromotes(t *testing.T) {
	l := New()
	for i := 0; i < 10; i++ {
		l.Record("api-development", true)
	}
	if got := l.Adjust("api-development", 0.9); got != 0.9 {
		t.Errorf("Adjust = %v, want capped at base", got)
	}
}

func TestSuccessRatio(t *testing.T) {
	l := New()
	l.Record("testing-automation", true)
	l.Record("testing-automation", true)
	l.Record("testing-automation", false)

	ratio, n := l.SuccessRatio("testing-automation")
	if n != 3 {
		t.Errorf("samples = %d, want 3", n)
	}
	if ratio < 0.66 || ratio > 0.67 {
		t.Errorf("ratio = %v, want ~0.667", ratio)
	}

	if _, n := l.SuccessRatio("unknown"); n != 0 {
		t.Errorf("unknown pattern samples = %d, want 0", n)
	}
}

func TestRecordTaskUsesType(t *testing.T) {
	l := New()
	task := &models.Task{Type: models.TaskTypeCoding}
	for i := 0; i < minSamples; i++ {
		l.RecordTask(task, false)
	}
	if got := l.Adjust("coding", 0.8); got >= 0.8 {
		t.Errorf("Adjust = %v, want demotion for failing coding tasks", got)
	}
}

func TestRecordTaskPrefersPattern(t *testing.T) {
	l := New()
	task := &models.Task{Type: models.TaskTypeCoding, Pattern: "api-development"}
	for i := 0; i < minSamples; i++ {
		l.RecordTask(task, false)
	}

	if got := l.Adjust("api-development", 0.9); got >= 0.9 {
		t.Errorf("Adjust = %v, want demotion under the pattern key", got)
	}
	// Outcomes went to the pattern, not the type.
	if got := l.Adjust("coding", 0.8); got != 0.8 {
		t.Errorf("Adjust = %v, want type untouched", got)
	}
}

func TestRecordIgnoresEmptyPattern(t *testing.T) {
	l := New()
	l.Record("", true)
	if _, n := l.SuccessRatio(""); n != 0 {
		t.Error("empty pattern must not be recorded")
	}
}
