package coordinator

import (
	"github.com/kestrelops/hive/internal/mesh"
	"github.com/kestrelops/hive/pkg/models"
)

// AgentCounts tallies agents by status.
type AgentCounts struct {
	Total   int `json:"total"`
	Idle    int `json:"idle"`
	Busy    int `json:"busy"`
	Offline int `json:"offline"`
}

// TaskCounts tallies tasks by status.
type TaskCounts struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// SwarmStatus is the basic coordination snapshot.
type SwarmStatus struct {
	SwarmID    string              `json:"swarm_id"`
	Topology   models.Topology     `json:"topology"`
	Agents     AgentCounts         `json:"agents"`
	Tasks      TaskCounts          `json:"tasks"`
	Objectives []*models.Objective `json:"objectives"`
}

// EnhancedStatus extends SwarmStatus with topology internals and mesh
// health.
type EnhancedStatus struct {
	SwarmStatus
	Metrics       models.TopologyMetrics    `json:"metrics"`
	Decisions     []models.AdaptiveDecision `json:"decisions"`
	Mesh          mesh.Status               `json:"mesh"`
	DroppedEvents uint64                    `json:"dropped_events"`
}

// GetSwarmStatus returns the basic coordination snapshot.
func (c *SwarmCoordinator) GetSwarmStatus() SwarmStatus {
	status := SwarmStatus{
		SwarmID:    c.swarmID,
		Topology:   c.CurrentTopology(),
		Objectives: c.Objectives(),
	}

	for _, agent := range c.registry.All() {
		status.Agents.Total++
		switch agent.Status {
		case models.AgentStatusIdle:
			status.Agents.Idle++
		case models.AgentStatusBusy:
			status.Agents.Busy++
		case models.AgentStatusOffline:
			status.Agents.Offline++
		}
	}

	for _, task := range c.graph.All() {
		status.Tasks.Total++
		switch task.Status {
		case models.TaskStatusQueued:
			status.Tasks.Queued++
		case models.TaskStatusRunning:
			status.Tasks.Running++
		case models.TaskStatusCompleted:
			status.Tasks.Completed++
		case models.TaskStatusFailed:
			status.Tasks.Failed++
		}
	}

	return status
}

// GetEnhancedCoordinationStatus returns the extended snapshot with
// metrics, the topology decision log, and mesh health.
func (c *SwarmCoordinator) GetEnhancedCoordinationStatus() EnhancedStatus {
	return EnhancedStatus{
		SwarmStatus:   c.GetSwarmStatus(),
		Metrics:       c.CollectMetrics(),
		Decisions:     c.Decisions(),
		Mesh:          c.mesh.NetworkStatus(),
		DroppedEvents: c.emitter.DroppedCount(),
	}
}
