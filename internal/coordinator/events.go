package coordinator

import (
	"time"

	"github.com/kestrelops/hive/pkg/models"
)

// EventType represents the type of coordinator event.
type EventType string

const (
	// EventObjectiveCreated indicates an objective was decomposed into tasks.
	EventObjectiveCreated EventType = "objective_created"
	// EventObjectiveCompleted indicates every owned task reached a terminal state.
	EventObjectiveCompleted EventType = "objective_completed"
	// EventTaskQueued indicates a task entered the graph.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task was assigned and started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventAgentRegistered indicates a new agent joined the swarm.
	EventAgentRegistered EventType = "agent_registered"
	// EventAgentOffline indicates an agent stopped heartbeating.
	EventAgentOffline EventType = "agent_offline"
	// EventTopologySwitched indicates the coordination topology changed.
	EventTopologySwitched EventType = "topology_switched"
	// EventHandoffCreated indicates a follow-up task was generated from
	// a completed one.
	EventHandoffCreated EventType = "handoff_created"
)

// CoordinatorEvent represents an event emitted by the coordinator.
// These events are used by subscribers to track swarm progress.
type CoordinatorEvent struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// TaskName is the name of the related task, if applicable.
	TaskName string
	// ObjectiveID is the ID of the related objective, if applicable.
	ObjectiveID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Topology carries the new topology for switch events.
	Topology models.Topology
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
