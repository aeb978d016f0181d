package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelops/hive/internal/scoring"
	"github.com/kestrelops/hive/pkg/models"
)

// handoffRule describes the follow-up generated when a task of the
// source type completes successfully.
type handoffRule struct {
	followType models.TaskType
	capability models.Capability
	namePrefix string
}

// handoffRules maps completed task types to their follow-up work.
// Follow-up types deliberately have no rule of their own, so a handoff
// never chains into another handoff.
var handoffRules = map[models.TaskType]handoffRule{
	models.TaskTypeCoding: {
		followType: models.TaskTypeReview,
		capability: models.CapCodeReview,
		namePrefix: "Review",
	},
	models.TaskTypeResearch: {
		followType: models.TaskTypeAnalysis,
		capability: models.CapAnalysis,
		namePrefix: "Analyze",
	},
}

// maybeHandoff generates a follow-up task for a successfully completed
// one. The handoff is dropped silently when no idle agent other than
// the completer could take it; forcing un-takeable work into the graph
// would only wedge the objective.
func (c *SwarmCoordinator) maybeHandoff(task *models.Task, completer *models.Agent, obj *models.Objective) {
	rule, ok := handoffRules[task.Type]
	if !ok {
		return
	}

	follow := c.buildHandoffTask(task, rule, completer, obj)

	if !c.hasHandoffCandidate(follow) {
		debugLog("[handoff] no candidate for %s follow-up of %s, dropping", rule.followType, task.ID)
		return
	}

	if err := c.graph.Add(follow); err != nil {
		debugLog("[handoff] queue follow-up for %s: %v", task.ID, err)
		return
	}
	if obj != nil {
		c.attachTask(obj.ID, follow.ID)
	}

	debugLog("[handoff] queued %s (%s) after %s", follow.ID, follow.Name, task.ID)
	c.emitter.Emit(CoordinatorEvent{
		Type:      EventHandoffCreated,
		TaskID:    follow.ID.ID,
		TaskName:  follow.Name,
		Message:   fmt.Sprintf("follow-up of %s", task.Name),
		Timestamp: time.Now(),
	})
	c.emitter.Emit(CoordinatorEvent{
		Type:     EventTaskQueued,
		TaskID:   follow.ID.ID,
		TaskName: follow.Name,
	})
}

// buildHandoffTask constructs the follow-up task. The completer goes on
// the exclusion list so the scorer can never hand the work back to its
// own author. For review handoffs the instructions name the artifacts
// awaiting review in the shared area.
func (c *SwarmCoordinator) buildHandoffTask(task *models.Task, rule handoffRule, completer *models.Agent, obj *models.Objective) *models.Task {
	instructions := fmt.Sprintf("%s the output of task %q.", rule.namePrefix, task.Name)
	if rule.followType == models.TaskTypeReview && c.workspace != nil && obj != nil {
		if pending, err := c.workspace.PendingReview(obj.ID); err == nil && len(pending) > 0 {
			names := make([]string, 0, len(pending))
			for _, meta := range pending {
				names = append(names, meta.Name)
			}
			instructions = fmt.Sprintf("Review the shared artifacts awaiting review: %s.",
				strings.Join(names, ", "))
		}
	}

	var excluded []string
	if completer != nil {
		excluded = []string{completer.ID.ID}
	}

	return &models.Task{
		ID: models.TaskID{
			ID:       uuid.New().String(),
			SwarmID:  c.swarmID,
			Sequence: int(c.taskSeq.Add(1)),
			Priority: models.PriorityNormal,
		},
		Name:         fmt.Sprintf("%s: %s", rule.namePrefix, task.Name),
		Description:  task.Description,
		Type:         rule.followType,
		Instructions: instructions,
		Requirements: models.TaskRequirements{
			Capabilities: []models.Capability{rule.capability},
		},
		Constraints: models.TaskConstraints{
			Dependencies:   []models.TaskID{task.ID},
			ExcludedAgents: excluded,
		},
		Priority:  models.PriorityNormal,
		Status:    models.TaskStatusQueued,
		CreatedAt: time.Now(),
	}
}

// hasHandoffCandidate reports whether some idle agent is compatible
// with the follow-up task. The scorer already rejects agents on the
// task's exclusion list, so the completer never counts.
func (c *SwarmCoordinator) hasHandoffCandidate(follow *models.Task) bool {
	for _, agent := range c.registry.Idle() {
		if scoring.Score(agent, follow) > 0 {
			return true
		}
	}
	return false
}
