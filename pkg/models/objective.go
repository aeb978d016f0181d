package models

import "time"

// ObjectiveStatus represents the current state of an objective.
type ObjectiveStatus string

const (
	// ObjectiveStatusActive indicates owned tasks are still in flight.
	ObjectiveStatusActive ObjectiveStatus = "active"
	// ObjectiveStatusCompleted indicates every owned task reached a
	// terminal state.
	ObjectiveStatusCompleted ObjectiveStatus = "completed"
)

// ObjectiveProgress aggregates task counters for one objective.
type ObjectiveProgress struct {
	TotalTasks      int     `json:"total_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	FailedTasks     int     `json:"failed_tasks"`
	RunningTasks    int     `json:"running_tasks"`
	PercentComplete float64 `json:"percent_complete"`
}

// Objective represents a user-supplied goal decomposed into a task graph.
type Objective struct {
	// ID is the unique identifier of the objective.
	ID string `json:"id"`
	// Description is the natural-language goal.
	Description string `json:"description"`
	// Strategy tags how the objective was decomposed.
	Strategy string `json:"strategy,omitempty"`
	// Tasks lists the tasks owned by this objective, in creation order.
	Tasks []TaskID `json:"tasks"`
	// Progress aggregates the owned tasks' states.
	Progress ObjectiveProgress `json:"progress"`
	// Status is the current state of the objective.
	Status ObjectiveStatus `json:"status"`
	// CreatedAt is when the objective was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when every owned task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
