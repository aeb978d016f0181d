// Package registry manages agent state: registration, the status state
// machine, heartbeats, and workload bookkeeping.
package registry

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelops/hive/pkg/models"
)

// Registry provides thread-safe storage of agents. Agents are never
// removed while the swarm runs; they may go offline but stay listed.
// Iteration order is registration order, which keeps scoring tie-breaks
// deterministic across runs. Accessors return copies; state changes go
// through the registry's own methods under its lock.
type Registry struct {
	swarmID string
	agents  map[string]*models.Agent
	order   []string
	// nextInstance tracks the per-type instance sequence for display ids.
	nextInstance map[models.AgentType]int
	mu           sync.RWMutex
}

// New creates a Registry for the given swarm.
func New(swarmID string) *Registry {
	return &Registry{
		swarmID:      swarmID,
		agents:       make(map[string]*models.Agent),
		nextInstance: make(map[models.AgentType]int),
	}
}

// Register creates and stores a new idle agent, returning it.
func (r *Registry) Register(name string, agentType models.AgentType, caps models.AgentCapabilities) (*models.Agent, error) {
	if !agentType.Valid() {
		return nil, fmt.Errorf("register %q: invalid agent type %q", name, agentType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextInstance[agentType]++
	agent := &models.Agent{
		ID: models.AgentID{
			ID:       uuid.New().String(),
			SwarmID:  r.swarmID,
			Type:     agentType,
			Instance: r.nextInstance[agentType],
		},
		Name:          name,
		Capabilities:  caps,
		Status:        models.AgentStatusIdle,
		Metrics:       models.AgentMetrics{SuccessRate: 1.0},
		LastHeartbeat: time.Now(),
	}
	r.agents[agent.ID.ID] = agent
	r.order = append(r.order, agent.ID.ID)
	return snapshot(agent), nil
}

// snapshot copies a stored agent for lock-free use by the caller.
func snapshot(a *models.Agent) *models.Agent {
	cp := *a
	return &cp
}

// Get returns a copy of the agent for an ID, or nil if not registered.
func (r *Registry) Get(id string) *models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil
	}
	return snapshot(a)
}

// All returns a copy of every agent in registration order.
func (r *Registry) All() []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, snapshot(r.agents[id]))
	}
	return out
}

// Idle returns agents currently available for work, in registration order.
func (r *Registry) Idle() []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Agent
	for _, id := range r.order {
		if a := r.agents[id]; a.Status == models.AgentStatusIdle {
			out = append(out, snapshot(a))
		}
	}
	return out
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LiveCount returns the number of agents that are idle or busy.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.agents {
		if a.Status == models.AgentStatusIdle || a.Status == models.AgentStatusBusy {
			n++
		}
	}
	return n
}

// Heartbeat records liveness for an agent. An offline agent that
// resumes heartbeating returns to idle.
func (r *Registry) Heartbeat(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("heartbeat: unknown agent %s", id)
	}
	a.LastHeartbeat = time.Now()
	if a.Status == models.AgentStatusOffline {
		a.Status = models.AgentStatusIdle
	}
	return nil
}

// MarkBusy transitions an idle agent to busy on a task, bumping its
// workload by increment (clamped to 1.0). Nothing is mutated on error.
func (r *Registry) MarkBusy(id string, task models.TaskID, increment float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("mark busy: unknown agent %s", id)
	}
	if a.Status != models.AgentStatusIdle {
		return fmt.Errorf("mark busy: agent %s is %s, not idle", a.ID, a.Status)
	}

	a.Status = models.AgentStatusBusy
	a.CurrentTask = &task
	a.Workload += increment
	if a.Workload > 1.0 {
		a.Workload = 1.0
	}
	return nil
}

// Release returns a busy agent to idle after its task finished, drops
// its workload by decrement (floored at 0), and updates its metrics.
func (r *Registry) Release(id string, decrement float64, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("release: unknown agent %s", id)
	}

	a.CurrentTask = nil
	if a.Status == models.AgentStatusBusy {
		a.Status = models.AgentStatusIdle
	}
	a.Workload -= decrement
	if a.Workload < 0 {
		a.Workload = 0
	}
	if success {
		a.Metrics.TasksCompleted++
	} else {
		a.Metrics.TasksFailed++
	}
	a.Metrics.Recalculate()
	return nil
}

// SweepOffline marks agents with stale heartbeats offline and returns
// the newly-offline agents. Busy agents get the longer grace window so
// long-running task execution does not evict them mid-task.
func (r *Registry) SweepOffline(now time.Time, idleTimeout, busyGrace time.Duration) []*models.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []*models.Agent
	for _, id := range r.order {
		a := r.agents[id]
		silence := now.Sub(a.LastHeartbeat)
		switch a.Status {
		case models.AgentStatusIdle:
			if silence > idleTimeout {
				a.Status = models.AgentStatusOffline
				swept = append(swept, snapshot(a))
			}
		case models.AgentStatusBusy:
			if silence > busyGrace {
				a.Status = models.AgentStatusOffline
				swept = append(swept, snapshot(a))
			}
		}
	}
	return swept
}

// WorkloadStats returns the mean and standard deviation of workloads
// across live agents. Both are 0 with no live agents.
func (r *Registry) WorkloadStats() (mean, stddev float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var loads []float64
	for _, a := range r.agents {
		if a.Status == models.AgentStatusIdle || a.Status == models.AgentStatusBusy {
			loads = append(loads, a.Workload)
		}
	}
	if len(loads) == 0 {
		return 0, 0
	}
	for _, l := range loads {
		mean += l
	}
	mean /= float64(len(loads))
	var variance float64
	for _, l := range loads {
		d := l - mean
		variance += d * d
	}
	variance /= float64(len(loads))
	return mean, math.Sqrt(variance)
}
