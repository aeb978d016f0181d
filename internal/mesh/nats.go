package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/kestrelops/hive/pkg/models"
)

// NATSNetwork is the NATS-backed mesh implementation. Node membership
// and coordination requests travel as JSON messages over group-scoped
// subjects; peers subscribe to the same subjects to pick up work.
type NATSNetwork struct {
	url   string
	group string
	// bus is the embedded server, when one was started. May be nil
	// when connecting to an external NATS deployment.
	bus  *Bus
	conn *nats.Conn

	nodes            map[string]Node
	coordinatedTasks int
	mu               sync.RWMutex
}

// NewNATSNetwork creates a mesh network client for an external NATS
// server at url.
func NewNATSNetwork(url, group string) *NATSNetwork {
	return &NATSNetwork{url: url, group: group, nodes: make(map[string]Node)}
}

// NewEmbeddedNetwork starts an embedded bus and a mesh network client
// connected to it.
func NewEmbeddedNetwork(cfg BusConfig, group string) (*NATSNetwork, error) {
	bus, err := NewBus(cfg)
	if err != nil {
		return nil, err
	}
	n := NewNATSNetwork(bus.ClientURL(), group)
	n.bus = bus
	return n, nil
}

// Initialize connects to the bus. Calling it again on a live
// connection is a no-op.
func (n *NATSNetwork) Initialize(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil && n.conn.IsConnected() {
		return nil
	}

	conn, err := nats.Connect(n.url, nats.Name("hive-mesh-"+n.group))
	if err != nil {
		return fmt.Errorf("connect to mesh bus: %w", err)
	}
	n.conn = conn
	slog.Info("mesh network initialized", "group", n.group, "url", n.url)
	return nil
}

// AddNode announces an agent to the mesh and records its membership.
func (n *NATSNetwork) AddNode(node Node) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return fmt.Errorf("mesh network not initialized")
	}
	if node.Group == "" {
		node.Group = n.group
	}

	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	if err := n.conn.Publish(topicNodeJoin(n.group), data); err != nil {
		return fmt.Errorf("announce node: %w", err)
	}

	n.nodes[node.AgentID.ID] = node
	slog.Debug("mesh node added", "agent", node.AgentID.String(), "group", n.group)
	return nil
}

// coordinateRequest is the wire form of a coordination submission.
type coordinateRequest struct {
	TaskID       string   `json:"task_id"`
	SwarmID      string   `json:"swarm_id"`
	Type         string   `json:"type"`
	Priority     string   `json:"priority"`
	Capabilities []string `json:"capabilities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// CoordinateTask publishes a task to the group's coordination subject.
func (n *NATSNetwork) CoordinateTask(ctx context.Context, task *models.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return fmt.Errorf("mesh network not initialized")
	}

	req := coordinateRequest{
		TaskID:       task.ID.ID,
		SwarmID:      task.ID.SwarmID,
		Type:         string(task.Type),
		Priority:     string(task.Priority),
		Instructions: task.Instructions,
	}
	for _, c := range task.Requirements.Capabilities {
		req.Capabilities = append(req.Capabilities, string(c))
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal coordinate request: %w", err)
	}
	if err := n.conn.Publish(topicTaskCoordinate(n.group), data); err != nil {
		return fmt.Errorf("publish coordinate request: %w", err)
	}

	n.coordinatedTasks++
	slog.Debug("task submitted to mesh", "task", task.ID.ID, "group", n.group)
	return nil
}

// NetworkStatus returns the aggregate mesh snapshot.
func (n *NATSNetwork) NetworkStatus() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return Status{
		Connected:        n.conn != nil && n.conn.IsConnected(),
		Nodes:            len(n.nodes),
		CoordinatedTasks: n.coordinatedTasks,
	}
}

// Close drains the connection and stops the embedded bus if one is
// running.
func (n *NATSNetwork) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	if n.bus != nil {
		n.bus.Close()
		n.bus = nil
	}
	return nil
}
