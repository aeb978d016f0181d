package coordinator

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kestrelops/hive/pkg/models"
)

// TaskSpec is one explicitly specified task, either built in code or
// parsed from a workflow file. Dependencies reference other specs in
// the same batch by name.
type TaskSpec struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Priority     string   `yaml:"priority,omitempty"`
	Instructions string   `yaml:"instructions,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	Tools        []string `yaml:"tools,omitempty"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
}

// Workflow is a declarative task batch loaded from a YAML file.
type Workflow struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tasks       []TaskSpec `yaml:"tasks"`
}

// LoadWorkflow parses a workflow YAML file.
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	if len(wf.Tasks) == 0 {
		return nil, fmt.Errorf("workflow %s defines no tasks", path)
	}
	return &wf, nil
}

// buildTasks turns specs into tasks with resolved dependency edges.
// Every task id is generated before any edge is built, so a valid spec
// batch can never produce a dangling reference.
func (c *SwarmCoordinator) buildTasks(description string, specs []TaskSpec) ([]*models.Task, error) {
	index := make(map[string]int, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("task spec %d: name required", i)
		}
		if _, dup := index[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate task name %q", spec.Name)
		}
		index[spec.Name] = i
	}

	ids := make([]models.TaskID, len(specs))
	for i, spec := range specs {
		priority := models.TaskPriority(spec.Priority)
		if spec.Priority == "" {
			priority = models.PriorityNormal
		} else if !priority.Valid() {
			return nil, fmt.Errorf("task %q: unknown priority %q", spec.Name, spec.Priority)
		}
		ids[i] = models.TaskID{
			ID:       uuid.New().String(),
			SwarmID:  c.swarmID,
			Sequence: int(c.taskSeq.Add(1)),
			Priority: priority,
		}
	}

	now := time.Now()
	tasks := make([]*models.Task, len(specs))
	for i, spec := range specs {
		taskType := models.TaskType(spec.Type)
		if spec.Type == "" {
			taskType = models.TaskTypeCustom
		}
		if !taskType.Valid() {
			return nil, fmt.Errorf("task %q: unknown type %q", spec.Name, spec.Type)
		}

		deps := make([]models.TaskID, 0, len(spec.DependsOn))
		for _, depName := range spec.DependsOn {
			j, ok := index[depName]
			if !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", spec.Name, depName)
			}
			deps = append(deps, ids[j])
		}

		caps := make([]models.Capability, 0, len(spec.Capabilities))
		for _, tag := range spec.Capabilities {
			caps = append(caps, models.Capability(tag))
		}

		tasks[i] = &models.Task{
			ID:           ids[i],
			Name:         spec.Name,
			Description:  description,
			Type:         taskType,
			Instructions: spec.Instructions,
			Requirements: models.TaskRequirements{
				Capabilities: caps,
				Tools:        spec.Tools,
			},
			Constraints: models.TaskConstraints{Dependencies: deps},
			Priority:    ids[i].Priority,
			Status:      models.TaskStatusQueued,
			CreatedAt:   now,
		}
	}
	return tasks, nil
}
