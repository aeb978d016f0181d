// Package decompose turns a natural-language objective into a set of
// tasks with dependency edges, guided by keyword-pattern detection.
package decompose

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelops/hive/pkg/models"
)

// Decomposer generates task graphs from objective descriptions.
// Generated tasks start queued and are NOT inserted into any store;
// that is the caller's responsibility.
type Decomposer struct {
	swarmID  string
	adjuster ConfidenceAdjuster
	// seq allocates per-swarm task sequence numbers.
	seq atomic.Int64
}

// New creates a Decomposer for the given swarm. The adjuster may be
// nil, in which case base pattern confidences are used unchanged.
func New(swarmID string, adjuster ConfidenceAdjuster) *Decomposer {
	return &Decomposer{swarmID: swarmID, adjuster: adjuster}
}

// taskSpec is one row of a pattern's task template. DependsOn indexes
// into the template itself, so edges can be resolved against ids that
// are all generated before any task is built.
type taskSpec struct {
	name         string
	taskType     models.TaskType
	instructions string
	capabilities []models.Capability
	priority     models.TaskPriority
	dependsOn    []int
	duration     time.Duration
}

// Decompose matches the description against the domain pattern table
// plus externally detected patterns, then expands the winning pattern's
// task template. With no match it degrades to a single catch-all task
// rather than failing the objective.
func (d *Decomposer) Decompose(description string, detected []TaskPattern) []*models.Task {
	matched := matchPatterns(description, d.adjuster)
	pattern, ok := bestPattern(matched, detected)
	if !ok {
		return d.expand(description, "", []taskSpec{{
			name:         "Execute objective",
			taskType:     models.TaskTypeCoding,
			instructions: description,
			capabilities: []models.Capability{models.CapCodeGeneration},
			priority:     models.PriorityNormal,
			duration:     30 * time.Minute,
		}})
	}
	return d.expand(description, pattern.Name, templateFor(pattern, description))
}

// expand generates every task id up front, then builds tasks and edges
// against the pre-generated ids so no dependency can dangle. Each task
// is stamped with the pattern that produced it, so outcome learning
// adjusts the pattern the task actually came from.
func (d *Decomposer) expand(description, pattern string, specs []taskSpec) []*models.Task {
	ids := make([]models.TaskID, len(specs))
	for i, spec := range specs {
		ids[i] = models.TaskID{
			ID:       uuid.New().String(),
			SwarmID:  d.swarmID,
			Sequence: int(d.seq.Add(1)),
			Priority: spec.priority,
		}
	}

	now := time.Now()
	tasks := make([]*models.Task, len(specs))
	for i, spec := range specs {
		deps := make([]models.TaskID, 0, len(spec.dependsOn))
		for _, j := range spec.dependsOn {
			deps = append(deps, ids[j])
		}
		tasks[i] = &models.Task{
			ID:           ids[i],
			Name:         spec.name,
			Description:  description,
			Type:         spec.taskType,
			Pattern:      pattern,
			Instructions: spec.instructions,
			Requirements: models.TaskRequirements{
				Capabilities:      spec.capabilities,
				EstimatedDuration: spec.duration,
			},
			Constraints: models.TaskConstraints{Dependencies: deps},
			Priority:    spec.priority,
			Status:      models.TaskStatusQueued,
			CreatedAt:   now,
		}
	}
	return tasks
}

// templateFor returns the fixed task template for a pattern. Unknown
// pattern names (from external detection) fall back to a single task
// carrying the pattern's own capability requirements.
func templateFor(p TaskPattern, description string) []taskSpec {
	switch p.Name {
	case "api-development":
		return []taskSpec{
			{
				name:         "API design",
				taskType:     models.TaskTypeAnalysis,
				instructions: "Design the API surface for: " + description,
				capabilities: []models.Capability{models.CapDesign},
				priority:     models.PriorityHigh,
				duration:     20 * time.Minute,
			},
			{
				name:         "API implementation",
				taskType:     models.TaskTypeCoding,
				instructions: "Implement the designed API for: " + description,
				capabilities: []models.Capability{models.CapCodeGeneration, models.CapAPIIntegration},
				priority:     models.PriorityHigh,
				dependsOn:    []int{0},
				duration:     45 * time.Minute,
			},
			{
				name:         "API testing",
				taskType:     models.TaskTypeTesting,
				instructions: "Write and run tests for the implemented API.",
				capabilities: []models.Capability{models.CapTesting},
				priority:     models.PriorityNormal,
				dependsOn:    []int{1},
				duration:     30 * time.Minute,
			},
			{
				name:         "API documentation",
				taskType:     models.TaskTypeDocumentation,
				instructions: "Document the API endpoints and usage.",
				capabilities: []models.Capability{models.CapDocumentation},
				priority:     models.PriorityLow,
				dependsOn:    []int{2},
				duration:     15 * time.Minute,
			},
		}
	case "web-development":
		return []taskSpec{
			{
				name:         "Interface design",
				taskType:     models.TaskTypeAnalysis,
				instructions: "Design the user-facing structure for: " + description,
				capabilities: []models.Capability{models.CapDesign},
				priority:     models.PriorityHigh,
				duration:     20 * time.Minute,
			},
			{
				name:         "Implementation",
				taskType:     models.TaskTypeCoding,
				instructions: "Implement: " + description,
				capabilities: []models.Capability{models.CapCodeGeneration},
				priority:     models.PriorityHigh,
				dependsOn:    []int{0},
				duration:     45 * time.Minute,
			},
			{
				name:         "Testing",
				taskType:     models.TaskTypeTesting,
				instructions: "Test the implementation end to end.",
				capabilities: []models.Capability{models.CapTesting},
				priority:     models.PriorityNormal,
				dependsOn:    []int{1},
				duration:     30 * time.Minute,
			},
		}
	case "testing-automation":
		return []taskSpec{
			{
				name:         "Test planning",
				taskType:     models.TaskTypeAnalysis,
				instructions: "Identify what needs test coverage for: " + description,
				capabilities: []models.Capability{models.CapAnalysis},
				priority:     models.PriorityHigh,
				duration:     15 * time.Minute,
			},
			{
				name:         "Test implementation",
				taskType:     models.TaskTypeTesting,
				instructions: "Write the planned tests for: " + description,
				capabilities: []models.Capability{models.CapTesting},
				priority:     models.PriorityHigh,
				dependsOn:    []int{0},
				duration:     40 * time.Minute,
			},
			{
				name:         "Coverage report",
				taskType:     models.TaskTypeDocumentation,
				instructions: "Summarize coverage and remaining gaps.",
				capabilities: []models.Capability{models.CapDocumentation},
				priority:     models.PriorityLow,
				dependsOn:    []int{1},
				duration:     10 * time.Minute,
			},
		}
	case "research-analysis":
		return []taskSpec{
			{
				name:         "Research",
				taskType:     models.TaskTypeResearch,
				instructions: "Gather sources and background for: " + description,
				capabilities: []models.Capability{models.CapResearch, models.CapWebSearch},
				priority:     models.PriorityHigh,
				duration:     30 * time.Minute,
			},
			{
				name:         "Analysis",
				taskType:     models.TaskTypeAnalysis,
				instructions: "Analyze the gathered research for: " + description,
				capabilities: []models.Capability{models.CapAnalysis},
				priority:     models.PriorityNormal,
				dependsOn:    []int{0},
				duration:     30 * time.Minute,
			},
			{
				name:         "Findings report",
				taskType:     models.TaskTypeDocumentation,
				instructions: "Write up the findings.",
				capabilities: []models.Capability{models.CapDocumentation},
				priority:     models.PriorityLow,
				dependsOn:    []int{1},
				duration:     15 * time.Minute,
			},
		}
	case "documentation":
		return []taskSpec{
			{
				name:         "Documentation",
				taskType:     models.TaskTypeDocumentation,
				instructions: description,
				capabilities: []models.Capability{models.CapDocumentation},
				priority:     models.PriorityNormal,
				duration:     30 * time.Minute,
			},
		}
	case "integration":
		return []taskSpec{
			{
				name:         "Integration analysis",
				taskType:     models.TaskTypeAnalysis,
				instructions: "Map the systems to connect for: " + description,
				capabilities: []models.Capability{models.CapAnalysis},
				priority:     models.PriorityHigh,
				duration:     20 * time.Minute,
			},
			{
				name:         "Integration implementation",
				taskType:     models.TaskTypeIntegration,
				instructions: "Implement the integration: " + description,
				capabilities: []models.Capability{models.CapCodeGeneration, models.CapAPIIntegration},
				priority:     models.PriorityHigh,
				dependsOn:    []int{0},
				duration:     40 * time.Minute,
			},
			{
				name:         "Integration validation",
				taskType:     models.TaskTypeValidation,
				instructions: "Validate the integration against both systems.",
				capabilities: []models.Capability{models.CapTesting},
				priority:     models.PriorityNormal,
				dependsOn:    []int{1},
				duration:     20 * time.Minute,
			},
		}
	default:
		return []taskSpec{{
			name:         p.Name,
			taskType:     models.TaskTypeCustom,
			instructions: description,
			capabilities: p.RequiredCapabilities,
			priority:     models.PriorityNormal,
			duration:     30 * time.Minute,
		}}
	}
}
