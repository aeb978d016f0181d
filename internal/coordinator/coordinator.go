package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelops/hive/internal/config"
	"github.com/kestrelops/hive/internal/decompose"
	"github.com/kestrelops/hive/internal/exec"
	"github.com/kestrelops/hive/internal/graph"
	"github.com/kestrelops/hive/internal/learning"
	"github.com/kestrelops/hive/internal/memory"
	"github.com/kestrelops/hive/internal/mesh"
	"github.com/kestrelops/hive/internal/registry"
	"github.com/kestrelops/hive/internal/workspace"
	"github.com/kestrelops/hive/pkg/models"
)

// SwarmCoordinator is the central coordination engine. It owns the
// agent registry, the task graph, the scheduler loops, and the adaptive
// topology state.
type SwarmCoordinator struct {
	swarmID string
	cfg     *config.Config

	registry   *registry.Registry
	graph      *graph.Store
	decomposer *decompose.Decomposer
	learner    *learning.PatternLearner
	executor   exec.Executor
	mesh       mesh.Network
	memory     memory.Store
	workspace  *workspace.Manager

	emitter *EventEmitter
	logger  *DebugLogger

	// topology state, guarded by topologyMu.
	topologyMu   sync.RWMutex
	topology     models.Topology
	autoTopology bool
	decisions    []models.AdaptiveDecision

	// objectives, guarded by objMu. objOrder preserves creation order.
	objMu      sync.RWMutex
	objectives map[string]*models.Objective
	objOrder   []string

	// scheduling is the tick re-entrancy guard.
	scheduling atomic.Bool
	// taskSeq allocates sequence numbers for manually specified tasks.
	taskSeq atomic.Int64
	// kick wakes the run loop for an immediate scheduling pass.
	kick chan struct{}

	// dispatchMu guards lastDispatch, the per-agent execution spacing.
	dispatchMu   sync.Mutex
	lastDispatch map[string]time.Time

	// metricsMu guards the rolling metric windows.
	metricsMu         sync.Mutex
	dispatchLatencies []float64
	completions       []time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// New creates a SwarmCoordinator from configuration. Collaborators not
// supplied via options fall back to no-op implementations, so a bare
// coordinator is fully functional for hierarchical in-process swarms.
func New(cfg *config.Config, opts ...Option) *SwarmCoordinator {
	if cfg == nil {
		cfg = config.Default()
	}

	c := &SwarmCoordinator{
		swarmID:      uuid.New().String(),
		cfg:          cfg,
		learner:      learning.New(),
		executor:     exec.NewLocal(cfg.Executor.Command),
		mesh:         mesh.NewNoop(),
		memory:       memory.Noop{},
		emitter:      NewEventEmitter(cfg.Coordinator.EventBuffer),
		logger:       NopLogger(),
		objectives:   make(map[string]*models.Objective),
		kick:         make(chan struct{}, 1),
		lastDispatch: make(map[string]time.Time),
	}
	c.graph = graph.NewStore()
	c.registry = registry.New(c.swarmID)

	topology := models.Topology(cfg.Topology.Initial)
	if topology == "auto" || !topology.Valid() {
		c.autoTopology = true
		topology = models.TopologyHierarchical
	}
	c.topology = topology

	for _, opt := range opts {
		opt(c)
	}

	c.decomposer = decompose.New(c.swarmID, c.learner)
	setPackageLogger(c.logger)

	return c
}

// SwarmID returns the coordinator's swarm identifier.
func (c *SwarmCoordinator) SwarmID() string {
	return c.swarmID
}

// Events returns the coordinator's event stream.
func (c *SwarmCoordinator) Events() <-chan CoordinatorEvent {
	return c.emitter.Events()
}

// RegisterAgent adds a new agent to the swarm and re-evaluates the
// topology for the new scale.
func (c *SwarmCoordinator) RegisterAgent(name string, agentType models.AgentType, caps models.AgentCapabilities) (*models.Agent, error) {
	agent, err := c.registry.Register(name, agentType, caps)
	if err != nil {
		return nil, err
	}

	debugLog("[coordinator] registered agent %s (%s)", agent.ID, agent.ID.ID)
	c.emitter.Emit(CoordinatorEvent{
		Type:      EventAgentRegistered,
		AgentID:   agent.ID.ID,
		Message:   fmt.Sprintf("agent %s registered", agent.ID),
		Timestamp: time.Now(),
	})

	// Mesh-backed topologies track every agent as a node.
	if top := c.CurrentTopology(); top == models.TopologyMesh || top == models.TopologyHybrid {
		if err := c.mesh.AddNode(meshNode(agent, c.swarmID)); err != nil {
			debugLog("[coordinator] mesh add node failed for %s: %v", agent.ID, err)
		}
	}

	c.reselectForScale()
	c.Kick()
	return agent, nil
}

// Heartbeat records liveness for an agent.
func (c *SwarmCoordinator) Heartbeat(agentID string) error {
	return c.registry.Heartbeat(agentID)
}

// Agents returns every registered agent in registration order.
func (c *SwarmCoordinator) Agents() []*models.Agent {
	return c.registry.All()
}

// CreateObjective decomposes a natural-language objective into tasks
// and queues them for scheduling. The strategy tags how the objective
// was sourced; empty means automatic decomposition.
func (c *SwarmCoordinator) CreateObjective(ctx context.Context, description, strategy string) (*models.Objective, error) {
	if description == "" {
		return nil, fmt.Errorf("objective description required")
	}
	if strategy == "" {
		strategy = "auto"
	}

	tasks := c.decomposer.Decompose(description, nil)
	return c.adoptTasks(description, strategy, tasks)
}

// CreateTasks queues an explicit set of task specs as one objective.
// Dependencies reference other specs by name; a reference to a name not
// in the batch is an error.
func (c *SwarmCoordinator) CreateTasks(ctx context.Context, description string, specs []TaskSpec) (*models.Objective, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one task spec required")
	}

	tasks, err := c.buildTasks(description, specs)
	if err != nil {
		return nil, err
	}
	return c.adoptTasks(description, "manual", tasks)
}

// adoptTasks inserts tasks into the graph and records the owning
// objective. The graph insert is all-or-nothing, so a bad batch leaves
// no partial objective behind.
func (c *SwarmCoordinator) adoptTasks(description, strategy string, tasks []*models.Task) (*models.Objective, error) {
	if err := c.graph.AddAll(tasks); err != nil {
		return nil, fmt.Errorf("creating objective: %w", err)
	}

	obj := &models.Objective{
		ID:          uuid.New().String(),
		Description: description,
		Strategy:    strategy,
		Status:      models.ObjectiveStatusActive,
		CreatedAt:   time.Now(),
	}
	for _, t := range tasks {
		obj.Tasks = append(obj.Tasks, t.ID)
	}
	obj.Progress = c.graph.Progress(obj.Tasks)

	c.objMu.Lock()
	c.objectives[obj.ID] = obj
	c.objOrder = append(c.objOrder, obj.ID)
	c.objMu.Unlock()

	if c.workspace != nil {
		if _, err := c.workspace.Create(obj.ID); err != nil {
			debugLog("[coordinator] workspace area for %s: %v", obj.ID, err)
		}
	}

	debugLog("[coordinator] objective %s created with %d tasks", obj.ID, len(tasks))
	c.emitter.Emit(CoordinatorEvent{
		Type:        EventObjectiveCreated,
		ObjectiveID: obj.ID,
		Message:     description,
		Timestamp:   time.Now(),
	})
	for _, t := range tasks {
		c.emitter.Emit(CoordinatorEvent{
			Type:        EventTaskQueued,
			TaskID:      t.ID.ID,
			TaskName:    t.Name,
			ObjectiveID: obj.ID,
			Timestamp:   time.Now(),
		})
	}

	c.Kick()
	return c.Objective(obj.ID), nil
}

// Objective returns a snapshot of one objective with fresh progress,
// or nil if unknown.
func (c *SwarmCoordinator) Objective(id string) *models.Objective {
	c.objMu.RLock()
	obj, ok := c.objectives[id]
	if !ok {
		c.objMu.RUnlock()
		return nil
	}
	snapshot := *obj
	snapshot.Tasks = append([]models.TaskID(nil), obj.Tasks...)
	c.objMu.RUnlock()

	snapshot.Progress = c.graph.Progress(snapshot.Tasks)
	return &snapshot
}

// Objectives returns snapshots of every objective in creation order.
func (c *SwarmCoordinator) Objectives() []*models.Objective {
	c.objMu.RLock()
	order := append([]string(nil), c.objOrder...)
	c.objMu.RUnlock()

	out := make([]*models.Objective, 0, len(order))
	for _, id := range order {
		if obj := c.Objective(id); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// Task returns the task for an ID, or nil.
func (c *SwarmCoordinator) Task(id string) *models.Task {
	return c.graph.Get(id)
}

// Kick requests an immediate scheduling pass from the run loop. Safe
// to call whether or not the loop is running.
func (c *SwarmCoordinator) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// objectiveOwning returns the objective that owns a task, or nil.
func (c *SwarmCoordinator) objectiveOwning(taskID string) *models.Objective {
	c.objMu.RLock()
	defer c.objMu.RUnlock()

	for _, id := range c.objOrder {
		obj := c.objectives[id]
		for _, tid := range obj.Tasks {
			if tid.ID == taskID {
				return obj
			}
		}
	}
	return nil
}

// attachTask adds a generated task to an existing objective's ownership.
func (c *SwarmCoordinator) attachTask(objectiveID string, taskID models.TaskID) {
	c.objMu.Lock()
	defer c.objMu.Unlock()

	if obj, ok := c.objectives[objectiveID]; ok {
		obj.Tasks = append(obj.Tasks, taskID)
		if obj.Status == models.ObjectiveStatusCompleted {
			obj.Status = models.ObjectiveStatusActive
			obj.CompletedAt = nil
		}
	}
}

// meshNode converts an agent to its mesh membership record.
func meshNode(agent *models.Agent, swarmID string) mesh.Node {
	var caps []string
	for _, capability := range []models.Capability{
		models.CapCodeGeneration, models.CapCodeReview, models.CapTesting,
		models.CapDocumentation, models.CapResearch, models.CapAnalysis,
		models.CapWebSearch, models.CapAPIIntegration, models.CapFileSystem,
		models.CapTerminal,
	} {
		if agent.Capabilities.Has(capability) {
			caps = append(caps, string(capability))
		}
	}
	caps = append(caps, agent.Capabilities.Tools...)
	return mesh.Node{AgentID: agent.ID, Capabilities: caps, Group: swarmID}
}
