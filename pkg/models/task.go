package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting on dependencies or
	// an available agent.
	TaskStatusQueued TaskStatus = "queued"
	// TaskStatusRunning indicates the task is assigned and executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed. Failure is terminal
	// for a task instance; there is no automatic retry.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was abandoned before
	// reaching a result.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is an end state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TaskTypeCoding        TaskType = "coding"
	TaskTypeResearch      TaskType = "research"
	TaskTypeAnalysis      TaskType = "analysis"
	TaskTypeTesting       TaskType = "testing"
	TaskTypeDocumentation TaskType = "documentation"
	TaskTypeReview        TaskType = "review"
	TaskTypeCoordination  TaskType = "coordination"
	TaskTypeIntegration   TaskType = "integration"
	TaskTypeValidation    TaskType = "validation"
	TaskTypeCustom        TaskType = "custom"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeCoding, TaskTypeResearch, TaskTypeAnalysis, TaskTypeTesting,
		TaskTypeDocumentation, TaskTypeReview, TaskTypeCoordination,
		TaskTypeIntegration, TaskTypeValidation, TaskTypeCustom:
		return true
	default:
		return false
	}
}

// TaskPriority orders tasks for dispatch.
type TaskPriority string

const (
	PriorityCritical   TaskPriority = "critical"
	PriorityHigh       TaskPriority = "high"
	PriorityNormal     TaskPriority = "normal"
	PriorityLow        TaskPriority = "low"
	PriorityBackground TaskPriority = "background"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow, PriorityBackground:
		return true
	default:
		return false
	}
}

// Weight returns the numeric dispatch weight: critical=5 .. background=1.
// Unknown priorities weigh the same as normal.
func (p TaskPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 5
	case PriorityHigh:
		return 4
	case PriorityNormal:
		return 3
	case PriorityLow:
		return 2
	case PriorityBackground:
		return 1
	default:
		return 3
	}
}

// TaskID is the composite identity of a task within a swarm.
type TaskID struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`
	// SwarmID is the owning swarm.
	SwarmID string `json:"swarm_id"`
	// Sequence is a per-graph sequence number used to generate stable
	// dependency references at decomposition time.
	Sequence int `json:"sequence"`
	// Priority is the priority hint carried on the identity.
	Priority TaskPriority `json:"priority"`
}

// String returns a human-readable form like "task-4".
func (t TaskID) String() string {
	return fmt.Sprintf("task-%d:%s", t.Sequence, t.ID)
}

// TaskRequirements describes what a task needs from an agent.
type TaskRequirements struct {
	// Capabilities lists required capability tags. Every tag must be
	// satisfied by the assigned agent.
	Capabilities []Capability `json:"capabilities,omitempty"`
	// Tools lists tool tags the agent should have available.
	Tools []string `json:"tools,omitempty"`
	// EstimatedDuration is a planning hint, not a deadline.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
}

// TaskConstraints describes ordering restrictions between tasks.
type TaskConstraints struct {
	// Dependencies lists tasks that must complete before this one starts.
	Dependencies []TaskID `json:"dependencies,omitempty"`
	// Conflicts lists tasks that must not run concurrently with this one.
	Conflicts []TaskID `json:"conflicts,omitempty"`
	// ExcludedAgents lists agent IDs that must not be assigned this
	// task, such as the author of the work a review covers.
	ExcludedAgents []string `json:"excluded_agents,omitempty"`
}

// TaskResult is the outcome reported by the execution capability.
type TaskResult struct {
	// Success reports whether the work finished successfully.
	Success bool `json:"success"`
	// Output is the textual result of the work.
	Output string `json:"output,omitempty"`
	// Artifacts maps artifact names to their content.
	Artifacts map[string]string `json:"artifacts,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// Task represents a unit of work in the swarm.
type Task struct {
	// ID is the composite identity of the task.
	ID TaskID `json:"id"`
	// Name is the short human-readable title.
	Name string `json:"name"`
	// Description provides detail about the work.
	Description string `json:"description,omitempty"`
	// Type classifies the work.
	Type TaskType `json:"type"`
	// Pattern names the decomposition pattern that generated the task.
	// Empty for manually specified and follow-up tasks.
	Pattern string `json:"pattern,omitempty"`
	// Instructions is the free-text brief handed to the executing agent.
	Instructions string `json:"instructions,omitempty"`
	// Requirements describes needed capabilities and tools.
	Requirements TaskRequirements `json:"requirements"`
	// Constraints describes dependency and conflict edges.
	Constraints TaskConstraints `json:"constraints"`
	// Priority orders the task for dispatch.
	Priority TaskPriority `json:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// AssignedTo is the agent working the task, if any.
	AssignedTo *AgentID `json:"assigned_to,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when the task transitioned to running.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Result holds the execution outcome, if any.
	Result *TaskResult `json:"result,omitempty"`
	// Error holds the failure message for failed tasks.
	Error string `json:"error,omitempty"`
}
