package coordinator

import (
	"testing"

	"github.com/kestrelops/hive/pkg/models"
)

func TestTickRespectsConcurrencyBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Coordinator.MaxConcurrentTasks = 2
	c, ctx := newTestCoordinator(t, cfg)

	for i := 0; i < 3; i++ {
		if _, err := c.RegisterAgent("agent", models.AgentTypeSpecialist, fullCaps()); err != nil {
			t.Fatalf("RegisterAgent failed: %v", err)
		}
	}
	specs := make([]TaskSpec, 6)
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		specs[i] = customSpec(name)
	}
	if _, err := c.CreateTasks(ctx, "batch", specs); err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 2 {
		t.Errorf("expected exactly 2 dispatches on the first tick, got %d", n)
	}
	if got := c.graph.RunningCount(); got != 2 {
		t.Errorf("expected 2 running tasks, got %d", got)
	}
	if got := len(c.registry.Idle()); got != 1 {
		t.Errorf("expected 1 agent left idle, got %d", got)
	}
}

func TestNoDoubleAssignment(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	if _, err := c.RegisterAgent("solo", models.AgentTypeSpecialist, fullCaps()); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if _, err := c.CreateTasks(ctx, "two", []TaskSpec{
		customSpec("a"),
		customSpec("b"),
	}); err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected 1 dispatch with a single agent, got %d", n)
	}
	// The agent is busy, so the next tick must not assign it again.
	if n := c.scheduleTick(ctx); n != 0 {
		t.Errorf("expected no dispatch while the only agent is busy, got %d", n)
	}

	running := c.graph.Running()
	if len(running) != 1 {
		t.Fatalf("expected 1 running task, got %d", len(running))
	}
	if running[0].AssignedTo == nil {
		t.Fatal("running task has no assignment")
	}
}

func TestDependencyOrdering(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	if _, err := c.RegisterAgent("solo", models.AgentTypeSpecialist, fullCaps()); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	obj, err := c.CreateTasks(ctx, "chain", []TaskSpec{
		customSpec("first"),
		customSpec("second", "first"),
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected only the independent task dispatched, got %d", n)
	}
	first := c.Task(obj.Tasks[0].ID)
	if first.Status != models.TaskStatusRunning {
		t.Fatalf("expected first running, got %s", first.Status)
	}
	second := c.Task(obj.Tasks[1].ID)
	if second.Status != models.TaskStatusQueued {
		t.Fatalf("expected second still queued, got %s", second.Status)
	}

	c.completeTask(first.ID.ID, c.registry.Get(first.AssignedTo.ID), &models.TaskResult{Success: true})

	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected second dispatched after first completed, got %d", n)
	}
	if got := c.Task(second.ID.ID).Status; got != models.TaskStatusRunning {
		t.Errorf("expected second running, got %s", got)
	}
}

func TestPriorityOrderingWithinTick(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	if _, err := c.RegisterAgent("solo", models.AgentTypeSpecialist, fullCaps()); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	obj, err := c.CreateTasks(ctx, "priorities", []TaskSpec{
		{Name: "chore", Type: string(models.TaskTypeCustom), Priority: string(models.PriorityLow)},
		{Name: "incident", Type: string(models.TaskTypeCustom), Priority: string(models.PriorityCritical)},
		{Name: "routine", Type: string(models.TaskTypeCustom), Priority: string(models.PriorityNormal)},
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected 1 dispatch, got %d", n)
	}

	incident := c.Task(obj.Tasks[1].ID)
	if incident.Status != models.TaskStatusRunning {
		t.Errorf("expected the critical task dispatched first, running task is not it")
	}
	if got := c.Task(obj.Tasks[0].ID).Status; got != models.TaskStatusQueued {
		t.Errorf("expected low-priority task still queued, got %s", got)
	}
}

func TestIncompatibleTaskStaysQueued(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	// The agent declares nothing, so any required capability fails the
	// hard filter and its score is zero.
	if _, err := c.RegisterAgent("empty", models.AgentTypeDeveloper, models.AgentCapabilities{}); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	obj, err := c.CreateTasks(ctx, "needs coder", []TaskSpec{
		{
			Name:         "write code",
			Type:         string(models.TaskTypeCoding),
			Capabilities: []string{string(models.CapCodeGeneration)},
		},
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 0 {
		t.Errorf("expected no dispatch for incompatible agent, got %d", n)
	}
	if got := c.Task(obj.Tasks[0].ID).Status; got != models.TaskStatusQueued {
		t.Errorf("expected task still queued, got %s", got)
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	agent, err := c.RegisterAgent("solo", models.AgentTypeSpecialist, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	obj, err := c.CreateTasks(ctx, "once", []TaskSpec{customSpec("only")})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}
	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected 1 dispatch, got %d", n)
	}

	taskID := obj.Tasks[0].ID
	c.completeTask(taskID, c.registry.Get(agent.ID.ID), &models.TaskResult{Success: true})
	c.completeTask(taskID, c.registry.Get(agent.ID.ID), &models.TaskResult{Success: true})

	got := c.registry.Get(agent.ID.ID)
	if got.Metrics.TasksCompleted != 1 {
		t.Errorf("expected 1 completion recorded, got %d", got.Metrics.TasksCompleted)
	}
	if got.Workload != 0 {
		t.Errorf("expected workload back at 0, got %.2f", got.Workload)
	}
	if got.Status != models.AgentStatusIdle {
		t.Errorf("expected idle agent, got %s", got.Status)
	}
}

func TestFailureIsTerminal(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	agent, err := c.RegisterAgent("solo", models.AgentTypeSpecialist, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	obj, err := c.CreateTasks(ctx, "doomed", []TaskSpec{
		customSpec("breaks"),
		customSpec("blocked", "breaks"),
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}
	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected 1 dispatch, got %d", n)
	}

	taskID := obj.Tasks[0].ID
	c.failTask(taskID, c.registry.Get(agent.ID.ID), "boom")

	// A late success report for the failed task must be ignored.
	c.completeTask(taskID, c.registry.Get(agent.ID.ID), &models.TaskResult{Success: true})
	if got := c.Task(taskID).Status; got != models.TaskStatusFailed {
		t.Errorf("expected failed to stick, got %s", got)
	}

	// The dependent can never become ready.
	if n := c.scheduleTick(ctx); n != 0 {
		t.Errorf("expected no dispatch for blocked dependent, got %d", n)
	}
	if got := c.Task(obj.Tasks[1].ID).Status; got != models.TaskStatusQueued {
		t.Errorf("expected dependent still queued, got %s", got)
	}
	if got := c.registry.Get(agent.ID.ID).Metrics.TasksFailed; got != 1 {
		t.Errorf("expected 1 failure recorded, got %d", got)
	}
}

func TestBestAgentWinsAssignment(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	// Both can code, but the developer carries the type affinity bonus.
	tester, err := c.RegisterAgent("tester", models.AgentTypeTester, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	dev, err := c.RegisterAgent("dev", models.AgentTypeDeveloper, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	obj, err := c.CreateTasks(ctx, "coding", []TaskSpec{
		{Name: "feature", Type: string(models.TaskTypeCoding), Capabilities: []string{string(models.CapCodeGeneration)}},
	})
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected 1 dispatch, got %d", n)
	}
	assigned := c.Task(obj.Tasks[0].ID).AssignedTo
	if assigned.ID != dev.ID.ID {
		t.Errorf("expected developer assigned, got %s", assigned)
	}
	if got := c.registry.Get(tester.ID.ID).Status; got != models.AgentStatusIdle {
		t.Errorf("expected tester left idle, got %s", got)
	}
}

func TestFailedBindingRequeuesTask(t *testing.T) {
	c, ctx := newTestCoordinator(t, nil)

	agent, err := c.RegisterAgent("solo", models.AgentTypeSpecialist, fullCaps())
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if _, err := c.CreateTasks(ctx, "two", []TaskSpec{
		customSpec("a"),
		customSpec("b"),
	}); err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}
	if n := c.scheduleTick(ctx); n != 1 {
		t.Fatalf("expected 1 dispatch, got %d", n)
	}

	// Force a binding against the already-busy agent. The binding must
	// fail and the task must return to the queue, not die.
	ready := c.graph.Ready()
	if len(ready) != 1 {
		t.Fatalf("expected 1 ready task, got %d", len(ready))
	}
	if err := c.assign(ctx, ready[0], c.registry.Get(agent.ID.ID)); err == nil {
		t.Fatal("expected assign to reject a busy agent")
	}

	got := c.Task(ready[0].ID.ID)
	if got.Status != models.TaskStatusQueued {
		t.Errorf("expected task back in queue, got %s", got.Status)
	}
	if got.AssignedTo != nil {
		t.Errorf("expected assignment cleared, still %s", got.AssignedTo)
	}
	if n := len(c.graph.Ready()); n != 1 {
		t.Errorf("expected task ready for a later tick, %d ready", n)
	}
}
