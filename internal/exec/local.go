package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kestrelops/hive/pkg/models"
)

// Local executes tasks by spawning an external worker command. The
// command receives the task instructions on stdin and the task/agent
// identity via environment variables; its stdout becomes the task
// output. An empty command yields a synthesized success, which keeps
// the coordinator usable in dry runs and tests.
type Local struct {
	// Command is the worker command line, split on whitespace.
	Command string
}

// NewLocal creates a Local executor for the given command line.
func NewLocal(command string) *Local {
	return &Local{Command: command}
}

// Execute runs the worker command for one task.
func (l *Local) Execute(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error) {
	if strings.TrimSpace(l.Command) == "" {
		return &models.TaskResult{
			Success: true,
			Output:  fmt.Sprintf("dry-run: %s handled by %s", task.Name, agent.ID),
			Artifacts: map[string]string{
				task.Name: task.Instructions,
			},
		}, nil
	}

	parts := strings.Fields(l.Command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(task.Instructions)
	cmd.Env = append(cmd.Environ(),
		"HIVE_TASK_ID="+task.ID.ID,
		"HIVE_TASK_TYPE="+string(task.Type),
		"HIVE_AGENT_ID="+agent.ID.ID,
		"HIVE_AGENT_TYPE="+string(agent.ID.Type),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &models.TaskResult{
			Success: false,
			Output:  stdout.String(),
			Error:   fmt.Sprintf("worker command failed: %v: %s", err, strings.TrimSpace(stderr.String())),
		}, nil
	}

	return &models.TaskResult{
		Success: true,
		Output:  stdout.String(),
	}, nil
}
