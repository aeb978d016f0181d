package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelops/hive/pkg/models"
)

// hybridMeshThreshold is the task complexity at or above which hybrid
// topology routes work through the mesh instead of hierarchically.
const hybridMeshThreshold = 0.7

// meshComplexityThreshold is the swarm complexity above which auto
// selection prefers full mesh coordination.
const meshComplexityThreshold = 0.8

// meshMinAgents is the minimum swarm size for full mesh coordination.
const meshMinAgents = 6

// latencyWindow bounds the rolling dispatch-latency sample set.
const latencyWindow = 100

// CurrentTopology returns the active coordination topology.
func (c *SwarmCoordinator) CurrentTopology() models.Topology {
	c.topologyMu.RLock()
	defer c.topologyMu.RUnlock()
	return c.topology
}

// Decisions returns the recorded topology switches, oldest first.
func (c *SwarmCoordinator) Decisions() []models.AdaptiveDecision {
	c.topologyMu.RLock()
	defer c.topologyMu.RUnlock()
	return append([]models.AdaptiveDecision(nil), c.decisions...)
}

// taskComplexity estimates how much coordination a task needs, in
// [0.5, 1.0]. Capability-heavy and analytical work scores higher.
func taskComplexity(task *models.Task) float64 {
	complexity := 0.5
	if len(task.Requirements.Capabilities) > 3 {
		complexity += 0.2
	}
	if task.Type == models.TaskTypeAnalysis || task.Type == models.TaskTypeResearch {
		complexity += 0.3
	}
	if complexity > 1.0 {
		complexity = 1.0
	}
	return complexity
}

// swarmComplexity averages task complexity over non-terminal tasks.
func (c *SwarmCoordinator) swarmComplexity() float64 {
	var sum float64
	n := 0
	for _, task := range c.graph.All() {
		if task.Status.Terminal() {
			continue
		}
		sum += taskComplexity(task)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// selectAuto picks the topology for the current scale and workload
// shape. Small swarms always coordinate hierarchically.
func (c *SwarmCoordinator) selectAuto(agents int, complexity float64) models.Topology {
	if agents < c.cfg.Topology.MeshActivationThreshold {
		return models.TopologyHierarchical
	}
	if complexity > meshComplexityThreshold && agents >= meshMinAgents {
		return models.TopologyMesh
	}
	return models.TopologyHybrid
}

// switchingCost estimates the migration cost of a topology change in
// [0,1]. Larger swarms and more in-flight work cost more; tearing down
// mesh consensus costs more than standing it up.
func switchingCost(from, to models.Topology, agents, runningTasks int) float64 {
	cost := 0.1
	cost += 0.02 * float64(agents)
	cost += 0.05 * float64(runningTasks)
	if from == models.TopologyMesh && to == models.TopologyHierarchical {
		cost += 0.15
	}
	if from == models.TopologyHierarchical && to == models.TopologyMesh {
		cost += 0.10
	}
	if cost > 1.0 {
		cost = 1.0
	}
	return cost
}

// recordDispatchLatency adds one dispatch latency sample.
func (c *SwarmCoordinator) recordDispatchLatency(d time.Duration) {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()

	c.dispatchLatencies = append(c.dispatchLatencies, float64(d.Milliseconds()))
	if len(c.dispatchLatencies) > latencyWindow {
		c.dispatchLatencies = c.dispatchLatencies[len(c.dispatchLatencies)-latencyWindow:]
	}
}

// recordCompletion adds one completion timestamp for throughput.
func (c *SwarmCoordinator) recordCompletion(at time.Time) {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()
	c.completions = append(c.completions, at)
}

// CollectMetrics takes a point-in-time snapshot of coordination health.
func (c *SwarmCoordinator) CollectMetrics() models.TopologyMetrics {
	total := c.registry.Count()
	live := c.registry.LiveCount()
	mean, stddev := c.registry.WorkloadStats()

	m := models.TopologyMetrics{
		NodeCount:           total,
		LoadBalance:         stddev,
		ResourceUtilization: mean,
		Reliability:         1.0,
	}
	if total > 0 {
		m.Reliability = float64(live) / float64(total)
	}

	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()

	if n := len(c.dispatchLatencies); n > 0 {
		var sum float64
		for _, l := range c.dispatchLatencies {
			sum += l
		}
		m.AvgLatency = sum / float64(n)
	}

	// Throughput counts completions inside the trailing minute.
	cutoff := time.Now().Add(-time.Minute)
	kept := c.completions[:0]
	for _, at := range c.completions {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	c.completions = kept
	m.Throughput = float64(len(kept))

	return m
}

// performanceTargets returns the configured thresholds.
func (c *SwarmCoordinator) performanceTargets() models.PerformanceTargets {
	t := c.cfg.Topology.Targets
	return models.PerformanceTargets{
		MaxLatency:       t.MaxLatencyMS,
		MinThroughput:    t.MinThroughput,
		MinReliability:   t.MinReliability,
		MaxLoadImbalance: t.MaxLoadImbalance,
	}
}

// evaluateTopology runs one adaptation pass. A switch only happens when
// enough performance targets are violated AND the estimated migration
// cost is below the configured ceiling. Both gates failing to open is
// the common case and costs one metrics snapshot.
func (c *SwarmCoordinator) evaluateTopology(ctx context.Context) {
	metrics := c.CollectMetrics()
	violations := c.performanceTargets().Violations(metrics)
	current := c.CurrentTopology()

	if violations < c.cfg.Topology.MinViolations {
		return
	}

	// When the scale-based pick agrees with the current topology, the
	// structure is not the problem and a switch would only pay a
	// migration cost for nothing.
	candidate := c.selectAuto(metrics.NodeCount, c.swarmComplexity())
	if candidate == current {
		return
	}

	cost := switchingCost(current, candidate, metrics.NodeCount, c.graph.RunningCount())
	if cost >= c.cfg.Topology.MaxSwitchingCost {
		debugLog("[topology] switch %s -> %s blocked, cost %.2f >= %.2f",
			current, candidate, cost, c.cfg.Topology.MaxSwitchingCost)
		return
	}

	confidence := float64(violations) / 4.0
	reason := fmt.Sprintf("%d performance targets violated", violations)
	c.switchTopology(ctx, candidate, reason, confidence, cost)
}

// reselectForScale re-evaluates the structural topology choice after
// the swarm's size changed. Only active when the topology is "auto".
func (c *SwarmCoordinator) reselectForScale() {
	if !c.autoTopology {
		return
	}

	current := c.CurrentTopology()
	candidate := c.selectAuto(c.registry.Count(), c.swarmComplexity())
	if candidate == current {
		return
	}

	cost := switchingCost(current, candidate, c.registry.Count(), c.graph.RunningCount())
	if cost >= c.cfg.Topology.MaxSwitchingCost {
		debugLog("[topology] scale switch %s -> %s blocked, cost %.2f", current, candidate, cost)
		return
	}
	c.switchTopology(context.Background(), candidate, "swarm scale changed", 0.75, cost)
}

// switchTopology executes a topology change: state, audit trail, event,
// and migration of agents and in-flight work onto the new coordination
// style.
func (c *SwarmCoordinator) switchTopology(ctx context.Context, to models.Topology, reason string, confidence, cost float64) {
	c.topologyMu.Lock()
	from := c.topology
	if from == to {
		c.topologyMu.Unlock()
		return
	}
	c.topology = to

	decision := models.AdaptiveDecision{
		Timestamp:     time.Now(),
		From:          from,
		To:            to,
		Reason:        reason,
		Confidence:    confidence,
		SwitchingCost: cost,
	}
	c.decisions = append(c.decisions, decision)
	if window := c.cfg.Topology.DecisionWindow; window > 0 && len(c.decisions) > window {
		c.decisions = c.decisions[len(c.decisions)-window:]
	}
	c.topologyMu.Unlock()

	debugLog("[topology] switched %s -> %s: %s (confidence %.2f, cost %.2f)",
		from, to, reason, confidence, cost)
	c.emitter.Emit(CoordinatorEvent{
		Type:      EventTopologySwitched,
		Topology:  to,
		Message:   reason,
		Timestamp: decision.Timestamp,
	})

	if payload, err := json.Marshal(decision); err == nil {
		key := fmt.Sprintf("topology/%d", decision.Timestamp.UnixNano())
		if err := c.memory.Put(c.memoryNamespace(), key, payload); err != nil {
			debugLog("[topology] persist decision: %v", err)
		}
	}

	if to == models.TopologyMesh || to == models.TopologyHybrid {
		c.migrateToMesh(ctx, to)
	}
}

// migrateToMesh brings the mesh up for the whole swarm and re-submits
// in-flight work for peer coordination.
func (c *SwarmCoordinator) migrateToMesh(ctx context.Context, to models.Topology) {
	if err := c.mesh.Initialize(ctx); err != nil {
		debugLog("[topology] mesh initialize: %v", err)
		return
	}
	for _, agent := range c.registry.All() {
		if agent.Status == models.AgentStatusOffline {
			continue
		}
		if err := c.mesh.AddNode(meshNode(agent, c.swarmID)); err != nil {
			debugLog("[topology] mesh add node %s: %v", agent.ID, err)
		}
	}
	for _, task := range c.graph.Running() {
		if to == models.TopologyHybrid && taskComplexity(task) < hybridMeshThreshold {
			continue
		}
		if err := c.mesh.CoordinateTask(ctx, task); err != nil {
			debugLog("[topology] mesh re-coordinate %s: %v", task.ID, err)
		}
	}
}

func (c *SwarmCoordinator) memoryNamespace() string {
	if ns := c.cfg.Memory.Namespace; ns != "" {
		return ns
	}
	return c.swarmID
}
