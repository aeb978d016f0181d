package mesh

import (
	"context"
	"sync"

	"github.com/kestrelops/hive/pkg/models"
)

// Noop is an in-memory Network for hierarchical-only swarms and tests.
// It tracks membership and submission counts without any bus.
type Noop struct {
	nodes            map[string]Node
	coordinatedTasks int
	initialized      bool
	mu               sync.RWMutex
}

// NewNoop creates an empty in-memory mesh.
func NewNoop() *Noop {
	return &Noop{nodes: make(map[string]Node)}
}

// Initialize marks the mesh ready.
func (n *Noop) Initialize(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initialized = true
	return nil
}

// AddNode records membership.
func (n *Noop) AddNode(node Node) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[node.AgentID.ID] = node
	return nil
}

// CoordinateTask counts the submission.
func (n *Noop) CoordinateTask(ctx context.Context, task *models.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.coordinatedTasks++
	return nil
}

// NetworkStatus reports the in-memory counters.
func (n *Noop) NetworkStatus() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return Status{
		Connected:        n.initialized,
		Nodes:            len(n.nodes),
		CoordinatedTasks: n.coordinatedTasks,
	}
}

// Close resets the mesh.
func (n *Noop) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initialized = false
	return nil
}
