// Package models defines the shared data model for the hive swarm:
// agents, tasks, objectives, and coordination topology.
package models

import (
	"fmt"
	"time"
)

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent is available for work.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusBusy indicates the agent is executing a task.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusOffline indicates the agent stopped sending heartbeats.
	AgentStatusOffline AgentStatus = "offline"
	// AgentStatusError indicates the agent entered an unrecoverable state.
	AgentStatusError AgentStatus = "error"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusBusy, AgentStatusOffline, AgentStatusError:
		return true
	default:
		return false
	}
}

// AgentType classifies what kind of work an agent specializes in.
type AgentType string

const (
	AgentTypeCoordinator AgentType = "coordinator"
	AgentTypeResearcher  AgentType = "researcher"
	AgentTypeDeveloper   AgentType = "developer"
	AgentTypeAnalyzer    AgentType = "analyzer"
	AgentTypeReviewer    AgentType = "reviewer"
	AgentTypeTester      AgentType = "tester"
	AgentTypeDocumenter  AgentType = "documenter"
	AgentTypeMonitor     AgentType = "monitor"
	AgentTypeSpecialist  AgentType = "specialist"
)

// Valid returns true if the type is a known value.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeCoordinator, AgentTypeResearcher, AgentTypeDeveloper,
		AgentTypeAnalyzer, AgentTypeReviewer, AgentTypeTester,
		AgentTypeDocumenter, AgentTypeMonitor, AgentTypeSpecialist:
		return true
	default:
		return false
	}
}

// AgentID is the composite identity of an agent within a swarm.
type AgentID struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`
	// SwarmID is the owning swarm.
	SwarmID string `json:"swarm_id"`
	// Type is the agent's declared specialization.
	Type AgentType `json:"type"`
	// Instance is a per-swarm sequence number, used for display only.
	Instance int `json:"instance"`
}

// String returns a human-readable form like "developer-3".
func (a AgentID) String() string {
	return fmt.Sprintf("%s-%d", a.Type, a.Instance)
}

// Capability identifies a skill an agent can declare.
type Capability string

const (
	CapCodeGeneration Capability = "code-generation"
	CapCodeReview     Capability = "code-review"
	CapTesting        Capability = "testing"
	CapDocumentation  Capability = "documentation"
	CapResearch       Capability = "research"
	CapAnalysis       Capability = "analysis"
	CapWebSearch      Capability = "web-search"
	CapAPIIntegration Capability = "api-integration"
	CapFileSystem     Capability = "file-system"
	CapTerminal       Capability = "terminal-access"
	// CapDesign has no boolean flag; it is satisfied by analysis
	// capability or by the system-design/architecture tools.
	CapDesign Capability = "design"
	// CapCustom is satisfied by any agent.
	CapCustom Capability = "custom"
)

// AgentCapabilities is the set of skills an agent declares at registration.
type AgentCapabilities struct {
	CodeGeneration bool `json:"code_generation"`
	CodeReview     bool `json:"code_review"`
	Testing        bool `json:"testing"`
	Documentation  bool `json:"documentation"`
	Research       bool `json:"research"`
	Analysis       bool `json:"analysis"`
	WebSearch      bool `json:"web_search"`
	APIIntegration bool `json:"api_integration"`
	FileSystem     bool `json:"file_system"`
	Terminal       bool `json:"terminal_access"`
	// Tools lists free-form tool tags beyond the boolean flags.
	Tools []string `json:"tools,omitempty"`
}

// Has reports whether the boolean flag for a known capability is set.
// Unknown capabilities return false; callers fall back to the tool list.
func (c AgentCapabilities) Has(cap Capability) bool {
	switch cap {
	case CapCodeGeneration:
		return c.CodeGeneration
	case CapCodeReview:
		return c.CodeReview
	case CapTesting:
		return c.Testing
	case CapDocumentation:
		return c.Documentation
	case CapResearch:
		return c.Research
	case CapAnalysis:
		return c.Analysis
	case CapWebSearch:
		return c.WebSearch
	case CapAPIIntegration:
		return c.APIIntegration
	case CapFileSystem:
		return c.FileSystem
	case CapTerminal:
		return c.Terminal
	default:
		return false
	}
}

// HasTool reports whether a tag appears in the free-form tool list.
func (c AgentCapabilities) HasTool(tag string) bool {
	for _, t := range c.Tools {
		if t == tag {
			return true
		}
	}
	return false
}

// AgentMetrics tracks an agent's historical performance.
type AgentMetrics struct {
	// TasksCompleted is the count of successfully finished tasks.
	TasksCompleted int `json:"tasks_completed"`
	// TasksFailed is the count of failed tasks.
	TasksFailed int `json:"tasks_failed"`
	// SuccessRate is completed/(completed+failed), 1.0 with no history.
	SuccessRate float64 `json:"success_rate"`
}

// Recalculate updates SuccessRate from the counters.
func (m *AgentMetrics) Recalculate() {
	total := m.TasksCompleted + m.TasksFailed
	if total == 0 {
		m.SuccessRate = 1.0
		return
	}
	m.SuccessRate = float64(m.TasksCompleted) / float64(total)
}

// Agent represents a registered worker in the swarm.
type Agent struct {
	// ID is the composite identity of the agent.
	ID AgentID `json:"id"`
	// Name is the display name given at registration.
	Name string `json:"name"`
	// Capabilities is the declared skill set.
	Capabilities AgentCapabilities `json:"capabilities"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status"`
	// Workload is a normalized 0..1 load indicator.
	Workload float64 `json:"workload"`
	// Metrics tracks historical performance.
	Metrics AgentMetrics `json:"metrics"`
	// LastHeartbeat is when the agent last reported liveness.
	LastHeartbeat time.Time `json:"last_heartbeat"`
	// CurrentTask is the task the agent is working on, if any.
	CurrentTask *TaskID `json:"current_task,omitempty"`
}
