package exec

import (
	"context"
	"strings"
	"testing"

	"github.com/kestrelops/hive/pkg/models"
)

func testTask() *models.Task {
	return &models.Task{
		ID:           models.TaskID{ID: "t1", SwarmID: "swarm"},
		Name:         "build thing",
		Type:         models.TaskTypeCoding,
		Instructions: "do the work",
	}
}

func testAgent() *models.Agent {
	return &models.Agent{
		ID: models.AgentID{ID: "a1", SwarmID: "swarm", Type: models.AgentTypeDeveloper, Instance: 1},
	}
}

func TestLocalDryRun(t *testing.T) {
	l := NewLocal("")
	result, err := l.Execute(context.Background(), testTask(), testAgent())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.Success {
		t.Error("dry-run result should succeed")
	}
	if len(result.Artifacts) != 1 {
		t.Errorf("artifacts = %v, want one entry", result.Artifacts)
	}
}

func TestLocalRunsCommand(t *testing.T) {
	l := NewLocal("cat")
	result, err := l.Execute(context.Background(), testTask(), testAgent())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if strings.TrimSpace(result.Output) != "do the work" {
		t.Errorf("output = %q, want instructions echoed", result.Output)
	}
}

func TestLocalCommandFailureIsResultNotError(t *testing.T) {
	l := NewLocal("false")
	result, err := l.Execute(context.Background(), testTask(), testAgent())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Success {
		t.Error("failing command should produce an unsuccessful result")
	}
	if result.Error == "" {
		t.Error("expected error detail in result")
	}
}

func TestLocalHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLocal("sleep 30")
	if _, err := l.Execute(ctx, testTask(), testAgent()); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestExecutorFunc(t *testing.T) {
	called := false
	f := ExecutorFunc(func(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error) {
		called = true
		return &models.TaskResult{Success: true}, nil
	})
	if _, err := f.Execute(context.Background(), testTask(), testAgent()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !called {
		t.Error("wrapped function was not called")
	}
}
