package coordinator

import (
	"context"
	"sort"
	"time"

	"github.com/kestrelops/hive/internal/scoring"
	"github.com/kestrelops/hive/pkg/models"
)

// scheduleTick runs one scheduling pass: collect ready tasks, order
// them by priority, and dispatch up to the tick budget. Returns how
// many tasks were dispatched. Overlapping ticks are rejected so a slow
// pass never races a timer-triggered one.
func (c *SwarmCoordinator) scheduleTick(ctx context.Context) int {
	if !c.scheduling.CompareAndSwap(false, true) {
		debugLog("[scheduler] tick skipped, previous pass still running")
		return 0
	}
	defer c.scheduling.Store(false)

	ready := c.graph.Ready()
	if len(ready) == 0 {
		return 0
	}

	// Higher priority weight first. The sort is stable, so equal
	// priorities keep graph insertion order and dispatch stays
	// deterministic.
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Priority.Weight() > ready[j].Priority.Weight()
	})

	idle := c.registry.Idle()
	budget := len(idle)
	if max := c.cfg.Coordinator.MaxConcurrentTasks; max > 0 && budget > max {
		budget = max
	}
	if budget == 0 {
		debugLog("[scheduler] %d ready tasks but no idle agents", len(ready))
		return 0
	}

	debugLog("[scheduler] %d ready tasks, %d idle agents, budget %d", len(ready), len(idle), budget)

	dispatched := 0
	for _, task := range ready {
		if dispatched >= budget {
			break
		}
		agent, score := scoring.Best(idle, task)
		if agent == nil {
			debugLog("[scheduler] no compatible agent for task %s (%s)", task.ID, task.Name)
			continue
		}
		if err := c.assign(ctx, task, agent); err != nil {
			debugLog("[scheduler] assign %s to %s: %v", task.ID, agent.ID, err)
			continue
		}
		debugLog("[scheduler] task %s -> agent %s (score %.1f)", task.ID, agent.ID, score)
		dispatched++

		// The agent is reserved for the rest of this tick.
		idle = without(idle, agent)
	}
	return dispatched
}

// assign records the task/agent binding and launches execution. All
// bookkeeping happens before the execution goroutine starts, so no
// observer can see a running task without an assigned busy agent.
func (c *SwarmCoordinator) assign(ctx context.Context, task *models.Task, agent *models.Agent) error {
	if err := c.graph.MarkRunning(task.ID.ID, agent.ID); err != nil {
		return err
	}
	if err := c.registry.MarkBusy(agent.ID.ID, task.ID, c.cfg.Coordinator.WorkloadIncrement); err != nil {
		// The agent slipped away between scoring and binding. Put the
		// task back in the queue so a later tick can place it.
		if rbErr := c.graph.Requeue(task.ID.ID); rbErr != nil {
			debugLog("[scheduler] requeue %s after failed binding: %v", task.ID, rbErr)
		}
		return err
	}

	now := time.Now()
	c.recordDispatchLatency(now.Sub(task.CreatedAt))

	c.emitter.Emit(CoordinatorEvent{
		Type:      EventTaskStarted,
		TaskID:    task.ID.ID,
		TaskName:  task.Name,
		AgentID:   agent.ID.ID,
		Timestamp: now,
	})

	wait := c.reserveDispatchSlot(agent.ID.ID, now)

	c.wg.Add(1)
	go c.executeTask(ctx, task, agent, wait)
	return nil
}

// reserveDispatchSlot enforces the minimum gap between successive
// execution calls to the same agent. Returns how long the caller must
// wait before executing.
func (c *SwarmCoordinator) reserveDispatchSlot(agentID string, now time.Time) time.Duration {
	spacing := c.cfg.Coordinator.AgentDispatchSpacing
	if spacing <= 0 {
		return 0
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	start := now
	if earliest := c.lastDispatch[agentID].Add(spacing); earliest.After(start) {
		start = earliest
	}
	c.lastDispatch[agentID] = start
	return start.Sub(now)
}

// executeTask runs one assigned task to its terminal state.
func (c *SwarmCoordinator) executeTask(ctx context.Context, task *models.Task, agent *models.Agent, wait time.Duration) {
	defer c.wg.Done()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			// Coordinator stopping; the task stays running for a
			// future restart policy to pick up.
			debugLog("[scheduler] abandoning %s before execution, coordinator stopping", task.ID)
			return
		}
	}

	// Mesh-backed topologies hand the task to peer coordination as
	// well. Hybrid only routes complex work through the mesh.
	switch top := c.CurrentTopology(); {
	case top == models.TopologyMesh,
		top == models.TopologyHybrid && taskComplexity(task) >= hybridMeshThreshold:
		if err := c.mesh.CoordinateTask(ctx, task); err != nil {
			debugLog("[scheduler] mesh coordination for %s: %v", task.ID, err)
		}
	}

	execCtx := ctx
	if timeout := c.cfg.Executor.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := c.executor.Execute(execCtx, task, agent)
	if err != nil {
		if ctx.Err() != nil {
			// Coordinator stopping, not an execution failure. The
			// task is abandoned in running rather than marked failed.
			debugLog("[scheduler] abandoning %s mid-execution, coordinator stopping", task.ID)
			return
		}
		c.failTask(task.ID.ID, agent, "executor error: "+err.Error())
		return
	}
	if result == nil || !result.Success {
		msg := "task reported failure"
		if result != nil && result.Error != "" {
			msg = result.Error
		}
		c.failTask(task.ID.ID, agent, msg)
		return
	}
	c.completeTask(task.ID.ID, agent, result)
}

// without returns agents minus one entry.
func without(agents []*models.Agent, drop *models.Agent) []*models.Agent {
	out := agents[:0:0]
	for _, a := range agents {
		if a != drop {
			out = append(out, a)
		}
	}
	return out
}
