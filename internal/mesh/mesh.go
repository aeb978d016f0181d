// Package mesh provides the peer-coordination capability the
// coordinator delegates to when running mesh or hybrid topologies.
// Consensus mechanics live behind the bus; the coordinator only adds
// nodes, submits tasks, and reads aggregate health.
package mesh

import (
	"context"

	"github.com/kestrelops/hive/pkg/models"
)

// Node is one agent's membership in the mesh.
type Node struct {
	// AgentID identifies the joining agent.
	AgentID models.AgentID `json:"agent_id"`
	// Capabilities lists the agent's capability tags.
	Capabilities []string `json:"capabilities"`
	// Group clusters nodes for coordination, usually the swarm id.
	Group string `json:"group"`
}

// Status is an aggregate snapshot of mesh health.
type Status struct {
	// Connected reports whether the bus connection is up.
	Connected bool `json:"connected"`
	// Nodes is the number of registered mesh nodes.
	Nodes int `json:"nodes"`
	// CoordinatedTasks counts tasks submitted for mesh coordination.
	CoordinatedTasks int `json:"coordinated_tasks"`
}

// Network is the mesh capability consumed by the coordinator.
type Network interface {
	// Initialize brings up the bus connection. Idempotent.
	Initialize(ctx context.Context) error
	// AddNode registers an agent with the mesh.
	AddNode(node Node) error
	// CoordinateTask submits a task for mesh-style coordination.
	CoordinateTask(ctx context.Context, task *models.Task) error
	// NetworkStatus returns an aggregate health snapshot.
	NetworkStatus() Status
	// Close tears down the bus connection.
	Close() error
}
