package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelops/hive/internal/decompose"
	"github.com/kestrelops/hive/internal/workspace"
	"github.com/kestrelops/hive/pkg/models"
)

// Start launches the coordinator's background loops. It returns an
// error if the coordinator is already running.
func (c *SwarmCoordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("coordinator already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	if top := c.CurrentTopology(); top == models.TopologyMesh || top == models.TopologyHybrid {
		if err := c.mesh.Initialize(c.ctx); err != nil {
			debugLog("[lifecycle] mesh initialize at start: %v", err)
		}
	}

	c.wg.Add(1)
	go c.runLoop(c.ctx)

	debugLog("[lifecycle] coordinator %s started, topology %s", c.swarmID, c.CurrentTopology())
	return nil
}

// Stop cancels the background loops, waits for in-flight executions to
// settle, and releases the coordinator's collaborators.
func (c *SwarmCoordinator) Stop() {
	if !c.started.Load() || c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()

	c.emitter.Close()
	if err := c.mesh.Close(); err != nil {
		debugLog("[lifecycle] mesh close: %v", err)
	}
	if err := c.memory.Close(); err != nil {
		debugLog("[lifecycle] memory close: %v", err)
	}
	debugLog("[lifecycle] coordinator %s stopped", c.swarmID)
	c.logger.Close()
}

// runLoop multiplexes the coordinator's periodic work. Each branch is
// one pass of one concern; a failing pass logs and the loop keeps
// running.
func (c *SwarmCoordinator) runLoop(ctx context.Context) {
	defer c.wg.Done()

	schedule := time.NewTicker(c.cfg.Coordinator.SchedulingInterval)
	defer schedule.Stop()
	topology := time.NewTicker(c.cfg.Topology.EvalInterval)
	defer topology.Stop()
	health := time.NewTicker(c.cfg.Health.CheckInterval)
	defer health.Stop()
	progress := time.NewTicker(c.cfg.Coordinator.ProgressInterval)
	defer progress.Stop()
	learn := time.NewTicker(c.cfg.Coordinator.LearningInterval)
	defer learn.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
			c.scheduleTick(ctx)
		case <-schedule.C:
			c.scheduleTick(ctx)
		case <-topology.C:
			c.evaluateTopology(ctx)
		case <-health.C:
			c.sweepHeartbeats(time.Now())
		case <-progress.C:
			c.refreshProgress()
		case <-learn.C:
			c.persistLearning()
		}
	}
}

// completeTask applies a successful execution outcome. The graph
// transition is the idempotency gate: when it reports the task was
// already terminal, every side effect below is skipped.
func (c *SwarmCoordinator) completeTask(taskID string, agent *models.Agent, result *models.TaskResult) {
	applied, err := c.graph.MarkCompleted(taskID, result)
	if err != nil {
		debugLog("[lifecycle] complete %s: %v", taskID, err)
		return
	}
	if !applied {
		debugLog("[lifecycle] complete %s: already terminal, ignoring", taskID)
		return
	}

	now := time.Now()
	c.recordCompletion(now)

	if agent != nil {
		if err := c.registry.Release(agent.ID.ID, c.cfg.Coordinator.WorkloadIncrement, true); err != nil {
			debugLog("[lifecycle] release %s: %v", agent.ID, err)
		}
	}

	task := c.graph.Get(taskID)
	c.learner.RecordTask(task, true)

	debugLog("[lifecycle] task %s (%s) completed", task.ID, task.Name)
	c.emitter.Emit(CoordinatorEvent{
		Type:      EventTaskCompleted,
		TaskID:    taskID,
		TaskName:  task.Name,
		AgentID:   agentIDString(agent),
		Timestamp: now,
	})

	c.auditTask(task, agent, true, "")

	obj := c.objectiveOwning(taskID)
	if obj != nil {
		c.storeArtifacts(obj.ID, task, agent, result)
	}
	c.maybeHandoff(task, agent, obj)

	c.refreshProgress()
	c.Kick()
}

// failTask applies a failed execution outcome. Failure is terminal for
// the task; dependents stay queued forever since their dependency can
// no longer complete.
func (c *SwarmCoordinator) failTask(taskID string, agent *models.Agent, msg string) {
	applied, err := c.graph.MarkFailed(taskID, msg)
	if err != nil {
		debugLog("[lifecycle] fail %s: %v", taskID, err)
		return
	}
	if !applied {
		debugLog("[lifecycle] fail %s: already terminal, ignoring", taskID)
		return
	}

	if agent != nil {
		if err := c.registry.Release(agent.ID.ID, c.cfg.Coordinator.WorkloadIncrement, false); err != nil {
			debugLog("[lifecycle] release %s: %v", agent.ID, err)
		}
	}

	task := c.graph.Get(taskID)
	c.learner.RecordTask(task, false)

	debugLog("[lifecycle] task %s (%s) failed: %s", task.ID, task.Name, msg)
	if blocked := c.graph.Dependents(taskID); len(blocked) > 0 {
		debugLog("[lifecycle] %d dependent tasks permanently blocked by %s", len(blocked), task.ID)
	}
	c.emitter.Emit(CoordinatorEvent{
		Type:      EventTaskFailed,
		TaskID:    taskID,
		TaskName:  task.Name,
		AgentID:   agentIDString(agent),
		Message:   msg,
		Error:     fmt.Errorf("%s", msg),
		Timestamp: time.Now(),
	})

	c.auditTask(task, agent, false, msg)

	c.refreshProgress()
	c.Kick()
}

// auditTask persists one task outcome to the memory store.
func (c *SwarmCoordinator) auditTask(task *models.Task, agent *models.Agent, success bool, errMsg string) {
	record := map[string]any{
		"task_id":  task.ID.ID,
		"name":     task.Name,
		"type":     task.Type,
		"agent":    agentIDString(agent),
		"success":  success,
		"error":    errMsg,
		"ended_at": time.Now().UTC(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	key := fmt.Sprintf("task/%s", task.ID.ID)
	if err := c.memory.Put(c.memoryNamespace(), key, payload); err != nil {
		debugLog("[lifecycle] audit %s: %v", task.ID, err)
	}
}

// storeArtifacts writes a completed task's artifacts into the owning
// objective's shared area. Coding output is flagged for review.
func (c *SwarmCoordinator) storeArtifacts(objectiveID string, task *models.Task, agent *models.Agent, result *models.TaskResult) {
	if c.workspace == nil || result == nil || len(result.Artifacts) == 0 {
		return
	}
	for name, content := range result.Artifacts {
		meta := workspace.ArtifactMeta{
			Name:           name,
			Author:         agentIDString(agent),
			TaskID:         task.ID.ID,
			ReviewRequired: task.Type == models.TaskTypeCoding,
		}
		if err := c.workspace.StoreArtifact(objectiveID, meta, []byte(content)); err != nil {
			debugLog("[lifecycle] store artifact %s: %v", name, err)
		}
	}
}

// refreshProgress recomputes every objective's progress and closes out
// the ones whose tasks all reached a terminal state.
func (c *SwarmCoordinator) refreshProgress() {
	c.objMu.Lock()
	defer c.objMu.Unlock()

	for _, id := range c.objOrder {
		obj := c.objectives[id]
		obj.Progress = c.graph.Progress(obj.Tasks)

		done := obj.Progress.TotalTasks > 0 &&
			obj.Progress.CompletedTasks+obj.Progress.FailedTasks == obj.Progress.TotalTasks
		if done && obj.Status == models.ObjectiveStatusActive {
			now := time.Now()
			obj.Status = models.ObjectiveStatusCompleted
			obj.CompletedAt = &now
			debugLog("[lifecycle] objective %s completed (%d/%d tasks succeeded)",
				obj.ID, obj.Progress.CompletedTasks, obj.Progress.TotalTasks)
			c.emitter.Emit(CoordinatorEvent{
				Type:        EventObjectiveCompleted,
				ObjectiveID: obj.ID,
				Timestamp:   now,
			})
		}
	}
}

// sweepHeartbeats marks silent agents offline. Busy agents get the
// longer grace window so long executions are not evicted mid-task.
func (c *SwarmCoordinator) sweepHeartbeats(now time.Time) {
	swept := c.registry.SweepOffline(now, c.cfg.Health.IdleTimeout, c.cfg.Health.BusyGrace)
	for _, agent := range swept {
		debugLog("[lifecycle] agent %s marked offline after heartbeat silence", agent.ID)
		c.emitter.Emit(CoordinatorEvent{
			Type:      EventAgentOffline,
			AgentID:   agent.ID.ID,
			Message:   fmt.Sprintf("agent %s offline", agent.ID),
			Timestamp: time.Now(),
		})
	}
}

// persistLearning snapshots the observed success ratios to the memory
// store, keyed by decomposition pattern and by task type for work that
// carried no pattern.
func (c *SwarmCoordinator) persistLearning() {
	keys := decompose.PatternNames()
	for _, taskType := range []models.TaskType{
		models.TaskTypeCoding, models.TaskTypeResearch, models.TaskTypeAnalysis,
		models.TaskTypeTesting, models.TaskTypeDocumentation, models.TaskTypeReview,
		models.TaskTypeCoordination, models.TaskTypeIntegration,
		models.TaskTypeValidation, models.TaskTypeCustom,
	} {
		keys = append(keys, string(taskType))
	}

	ratios := make(map[string]float64)
	for _, key := range keys {
		if ratio, samples := c.learner.SuccessRatio(key); samples > 0 {
			ratios[key] = ratio
		}
	}
	if len(ratios) == 0 {
		return
	}

	payload, err := json.Marshal(ratios)
	if err != nil {
		return
	}
	if err := c.memory.Put(c.memoryNamespace(), "learning/success-ratios", payload); err != nil {
		debugLog("[lifecycle] persist learning: %v", err)
	}
}

func agentIDString(agent *models.Agent) string {
	if agent == nil {
		return ""
	}
	return agent.ID.ID
}
