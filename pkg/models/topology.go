package models

import "time"

// Topology is the coordination strategy governing task delegation.
type Topology string

const (
	// TopologyHierarchical routes all work through the coordinator.
	TopologyHierarchical Topology = "hierarchical"
	// TopologyMesh delegates work to peer-to-peer coordination.
	TopologyMesh Topology = "mesh"
	// TopologyHybrid routes complex tasks to the mesh and the rest
	// hierarchically.
	TopologyHybrid Topology = "hybrid"
)

// Valid returns true if the topology is a known value.
func (t Topology) Valid() bool {
	switch t {
	case TopologyHierarchical, TopologyMesh, TopologyHybrid:
		return true
	default:
		return false
	}
}

// TopologyMetrics is a point-in-time snapshot of coordination health.
type TopologyMetrics struct {
	// NodeCount is the number of registered agents.
	NodeCount int `json:"node_count"`
	// AvgLatency is the average task dispatch latency in milliseconds.
	AvgLatency float64 `json:"avg_latency_ms"`
	// Throughput is completed tasks per minute.
	Throughput float64 `json:"throughput"`
	// Reliability is liveAgents/totalAgents.
	Reliability float64 `json:"reliability"`
	// LoadBalance is the standard deviation of agent workloads; lower
	// means more even distribution.
	LoadBalance float64 `json:"load_balance"`
	// ResourceUtilization is the mean agent workload.
	ResourceUtilization float64 `json:"resource_utilization"`
}

// PerformanceTargets are the thresholds the topology evaluator checks.
type PerformanceTargets struct {
	// MaxLatency is the highest acceptable AvgLatency in milliseconds.
	MaxLatency float64 `json:"max_latency_ms"`
	// MinThroughput is the lowest acceptable Throughput.
	MinThroughput float64 `json:"min_throughput"`
	// MinReliability is the lowest acceptable Reliability.
	MinReliability float64 `json:"min_reliability"`
	// MaxLoadImbalance is the highest acceptable LoadBalance deviation.
	MaxLoadImbalance float64 `json:"max_load_imbalance"`
}

// Violations counts how many targets the metrics snapshot misses.
func (p PerformanceTargets) Violations(m TopologyMetrics) int {
	n := 0
	if m.AvgLatency > p.MaxLatency {
		n++
	}
	if m.Throughput < p.MinThroughput {
		n++
	}
	if m.Reliability < p.MinReliability {
		n++
	}
	if m.LoadBalance > p.MaxLoadImbalance {
		n++
	}
	return n
}

// AdaptiveDecision is one entry of the topology-switch audit log.
type AdaptiveDecision struct {
	// Timestamp is when the switch was executed.
	Timestamp time.Time `json:"timestamp"`
	// From is the topology before the switch.
	From Topology `json:"from"`
	// To is the topology after the switch.
	To Topology `json:"to"`
	// Reason describes why the switch was made.
	Reason string `json:"reason"`
	// Confidence is the evaluator's confidence in the recommendation.
	Confidence float64 `json:"confidence"`
	// SwitchingCost is the estimated migration cost in [0,1].
	SwitchingCost float64 `json:"switching_cost"`
}
