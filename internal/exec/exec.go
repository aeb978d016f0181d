// Package exec defines the task-execution capability the coordinator
// consumes, plus the bundled executor implementations.
package exec

import (
	"context"

	"github.com/kestrelops/hive/pkg/models"
)

// Executor runs a task on behalf of an agent and reports the outcome.
// Execute blocks until the work finishes or ctx is cancelled; the
// coordinator calls it from a per-assignment goroutine. A non-nil error
// means the executor itself broke; work-level failure is reported via
// Result.Success so the failure handler can distinguish the two.
type Executor interface {
	Execute(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error) {
	return f(ctx, task, agent)
}
