package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelops/hive/internal/config"
	"github.com/kestrelops/hive/pkg/models"
)

// blockingExecutor parks until the test context is cancelled, so tasks
// stay running under test control.
type blockingExecutor struct{}

func (blockingExecutor) Execute(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Coordinator.AgentDispatchSpacing = 0
	cfg.Executor.Timeout = 0
	return cfg
}

func newTestCoordinator(t *testing.T, cfg *config.Config, opts ...Option) (*SwarmCoordinator, context.Context) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	base := []Option{WithExecutor(blockingExecutor{})}
	return New(cfg, append(base, opts...)...), ctx
}

func fullCaps() models.AgentCapabilities {
	return models.AgentCapabilities{
		CodeGeneration: true,
		CodeReview:     true,
		Testing:        true,
		Documentation:  true,
		Research:       true,
		Analysis:       true,
		WebSearch:      true,
		APIIntegration: true,
		FileSystem:     true,
		Terminal:       true,
	}
}

func customSpec(name string, deps ...string) TaskSpec {
	return TaskSpec{Name: name, Type: string(models.TaskTypeCustom), DependsOn: deps}
}

func TestCreateObjectiveDecomposes(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	obj, err := c.CreateObjective(ctx, "Build a REST API service for user accounts", "")
	if err != nil {
		t.Fatalf("CreateObjective failed: %v", err)
	}

	if len(obj.Tasks) != 4 {
		t.Fatalf("expected 4 tasks from the api pattern, got %d", len(obj.Tasks))
	}
	if obj.Status != models.ObjectiveStatusActive {
		t.Errorf("expected active objective, got %s", obj.Status)
	}
	if obj.Progress.TotalTasks != 4 {
		t.Errorf("expected progress over 4 tasks, got %d", obj.Progress.TotalTasks)
	}
	for _, tid := range obj.Tasks {
		task := c.Task(tid.ID)
		if task == nil {
			t.Fatalf("task %s not in graph", tid.ID)
		}
		if task.Status != models.TaskStatusQueued {
			t.Errorf("task %s expected queued, got %s", task.Name, task.Status)
		}
	}
}

func TestCreateObjectiveRequiresDescription(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	if _, err := c.CreateObjective(ctx, "", ""); err == nil {
		t.Error("expected error for empty description")
	}
}

func TestCreateTasksResolvesDependencies(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	obj, err := c.CreateTasks(ctx, "pipeline", []TaskSpec{
		customSpec("fetch"),
		customSpec("transform", "fetch"),
		customSpec("load", "transform"),
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}
	if len(obj.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(obj.Tasks))
	}

	transform := c.Task(obj.Tasks[1].ID)
	if len(transform.Constraints.Dependencies) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(transform.Constraints.Dependencies))
	}
	if transform.Constraints.Dependencies[0].ID != obj.Tasks[0].ID {
		t.Error("transform dependency does not reference fetch")
	}
}

func TestCreateTasksRejectsUnknownDependency(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	_, err := c.CreateTasks(ctx, "bad", []TaskSpec{
		customSpec("a", "missing"),
	})
	if err == nil {
		t.Fatal("expected error for unknown dependency name")
	}
	if c.graph.Size() != 0 {
		t.Errorf("expected empty graph after rejected batch, got %d tasks", c.graph.Size())
	}
}

func TestCreateTasksRejectsDuplicateNames(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	_, err := c.CreateTasks(ctx, "dup", []TaskSpec{
		customSpec("a"),
		customSpec("a"),
	})
	if err == nil {
		t.Error("expected error for duplicate task names")
	}
}

func TestRegisterAgentAssignsInstanceNames(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)

	first, err := c.RegisterAgent("dev-one", models.AgentTypeDeveloper, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	second, err := c.RegisterAgent("dev-two", models.AgentTypeDeveloper, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	if got := first.ID.String(); got != "developer-1" {
		t.Errorf("expected developer-1, got %s", got)
	}
	if got := second.ID.String(); got != "developer-2" {
		t.Errorf("expected developer-2, got %s", got)
	}
	if first.Status != models.AgentStatusIdle {
		t.Errorf("expected idle on registration, got %s", first.Status)
	}
}

func TestObjectiveCompletesWhenAllTasksTerminal(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.RegisterAgent("agent", models.AgentTypeSpecialist, fullCaps()); err != nil {
			t.Fatalf("RegisterAgent failed: %v", err)
		}
	}
	obj, err := c.CreateTasks(ctx, "mixed outcome", []TaskSpec{
		customSpec("wins"),
		customSpec("loses"),
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 2 {
		t.Fatalf("expected 2 dispatches, got %d", n)
	}

	running := c.graph.Running()
	c.completeTask(running[0].ID.ID, c.registry.Get(running[0].AssignedTo.ID), &models.TaskResult{Success: true})
	c.failTask(running[1].ID.ID, c.registry.Get(running[1].AssignedTo.ID), "broke")

	snapshot := c.Objective(obj.ID)
	if snapshot.Status != models.ObjectiveStatusCompleted {
		t.Errorf("expected completed objective, got %s", snapshot.Status)
	}
	if snapshot.Progress.CompletedTasks != 1 || snapshot.Progress.FailedTasks != 1 {
		t.Errorf("expected 1 completed and 1 failed, got %+v", snapshot.Progress)
	}
	if snapshot.Progress.PercentComplete != 100 {
		t.Errorf("expected 100%% progress, got %.1f", snapshot.Progress.PercentComplete)
	}
}

func TestSweepMarksStaleAgentsOffline(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)

	agent, err := c.RegisterAgent("quiet", models.AgentTypeDeveloper, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	// 91 seconds of silence is past the idle timeout.
	c.sweepHeartbeats(time.Now().Add(91 * time.Second))

	if got := c.registry.Get(agent.ID.ID).Status; got != models.AgentStatusOffline {
		t.Fatalf("expected offline after sweep, got %s", got)
	}

	found := false
	for {
		select {
		case ev := <-c.Events():
			if ev.Type == EventAgentOffline && ev.AgentID == agent.ID.ID {
				found = true
			}
			continue
		default:
		}
		break
	}
	if !found {
		t.Error("expected an agent_offline event")
	}

	// A heartbeat revives the agent.
	if err := c.Heartbeat(agent.ID.ID); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if got := c.registry.Get(agent.ID.ID).Status; got != models.AgentStatusIdle {
		t.Errorf("expected idle after heartbeat, got %s", got)
	}
}

func TestFailuresDemoteDecomposedPattern(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	// Two failed api objectives put enough samples on the pattern for
	// the learner to demote its confidence on the next decomposition.
	for i := 0; i < 2; i++ {
		obj, err := c.CreateObjective(ctx, "Build a REST api for accounts", "")
		if err != nil {
			t.Fatalf("CreateObjective failed: %v", err)
		}
		for _, tid := range obj.Tasks {
			c.failTask(tid.ID, nil, "no capacity")
		}
	}

	if got := c.learner.Adjust("api-development", 0.9); got >= 0.9 {
		t.Errorf("Adjust = %v, want demotion after repeated pattern failures", got)
	}
}

func TestGetSwarmStatusCounters(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	if _, err := c.RegisterAgent("dev", models.AgentTypeDeveloper, fullCaps()); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if _, err := c.CreateTasks(ctx, "two tasks", []TaskSpec{
		customSpec("a"),
		customSpec("b"),
	}); err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}
	c.scheduleTick(ctx)

	status := c.GetSwarmStatus()
	if status.Agents.Total != 1 || status.Agents.Busy != 1 {
		t.Errorf("unexpected agent counts: %+v", status.Agents)
	}
	if status.Tasks.Total != 2 || status.Tasks.Running != 1 || status.Tasks.Queued != 1 {
		t.Errorf("unexpected task counts: %+v", status.Tasks)
	}
	if status.Topology != models.TopologyHierarchical {
		t.Errorf("expected hierarchical default, got %s", status.Topology)
	}

	enhanced := c.GetEnhancedCoordinationStatus()
	if enhanced.Metrics.NodeCount != 1 {
		t.Errorf("expected 1 node in metrics, got %d", enhanced.Metrics.NodeCount)
	}
}

func TestStartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Coordinator.SchedulingInterval = 10 * time.Millisecond
	c, ctx := newTestCoordinator(t, cfg)

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}
	c.Stop()
}
