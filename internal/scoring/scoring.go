// Package scoring rates agent/task pairings. A score of zero means the
// pairing is incompatible and the agent must not be selected.
package scoring

import (
	"github.com/kestrelops/hive/pkg/models"
)

// Affinity bonus applied when an agent's declared type matches the
// task's type per the affinity table.
const typeAffinityBonus = 25.0

// typeAffinity maps agent types to the task types they are natural
// fits for.
var typeAffinity = map[models.AgentType][]models.TaskType{
	models.AgentTypeCoordinator: {models.TaskTypeCoordination},
	models.AgentTypeResearcher:  {models.TaskTypeResearch},
	models.AgentTypeDeveloper:   {models.TaskTypeCoding, models.TaskTypeIntegration},
	models.AgentTypeAnalyzer:    {models.TaskTypeAnalysis},
	models.AgentTypeReviewer:    {models.TaskTypeReview},
	models.AgentTypeTester:      {models.TaskTypeTesting, models.TaskTypeValidation},
	models.AgentTypeDocumenter:  {models.TaskTypeDocumentation},
	models.AgentTypeSpecialist:  {models.TaskTypeCustom},
}

// Score rates how suitable an agent is for a task. Zero means the agent
// fails a hard filter: a missing capability, or the task names the
// agent in its exclusion list. Higher is better; the maximum is
// 50 (base) + 30 (success rate) + 20 (idle workload) + 25 (affinity).
func Score(agent *models.Agent, task *models.Task) float64 {
	for _, excluded := range task.Constraints.ExcludedAgents {
		if agent.ID.ID == excluded {
			return 0
		}
	}
	for _, required := range task.Requirements.Capabilities {
		if !satisfies(agent.Capabilities, required) {
			return 0
		}
	}

	score := 50.0
	score += agent.Metrics.SuccessRate * 30
	score += (1 - agent.Workload) * 20
	if hasAffinity(agent.ID.Type, task.Type) {
		score += typeAffinityBonus
	}
	return score
}

// satisfies implements the hard capability filter. Known capabilities
// check the boolean flag; design is satisfied by analysis capability or
// the system-design/architecture tools; custom is always satisfied;
// unrecognized tags fall back to the free-form tool list.
func satisfies(caps models.AgentCapabilities, required models.Capability) bool {
	switch required {
	case models.CapCustom:
		return true
	case models.CapDesign:
		return caps.Analysis || caps.HasTool("system-design") || caps.HasTool("architecture")
	default:
		if caps.Has(required) {
			return true
		}
		return caps.HasTool(string(required))
	}
}

// hasAffinity reports whether the agent type carries the bonus for the
// task type. Custom tasks grant the bonus to every agent type.
func hasAffinity(agentType models.AgentType, taskType models.TaskType) bool {
	if taskType == models.TaskTypeCustom {
		return true
	}
	for _, t := range typeAffinity[agentType] {
		if t == taskType {
			return true
		}
	}
	return false
}

// Best returns the highest-scoring compatible agent from candidates,
// or nil if none passes the hard filter. Ties keep the first candidate
// found, so callers passing a stable ordering get deterministic picks.
func Best(candidates []*models.Agent, task *models.Task) (*models.Agent, float64) {
	var best *models.Agent
	var bestScore float64
	for _, agent := range candidates {
		s := Score(agent, task)
		if s > bestScore {
			best = agent
			bestScore = s
		}
	}
	return best, bestScore
}
