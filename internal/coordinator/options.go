package coordinator

import (
	"github.com/kestrelops/hive/internal/exec"
	"github.com/kestrelops/hive/internal/memory"
	"github.com/kestrelops/hive/internal/mesh"
	"github.com/kestrelops/hive/internal/workspace"
)

// Option configures a SwarmCoordinator at construction time.
type Option func(*SwarmCoordinator)

// WithExecutor sets the task execution backend.
func WithExecutor(e exec.Executor) Option {
	return func(c *SwarmCoordinator) {
		if e != nil {
			c.executor = e
		}
	}
}

// WithMesh sets the peer-coordination network.
func WithMesh(n mesh.Network) Option {
	return func(c *SwarmCoordinator) {
		if n != nil {
			c.mesh = n
		}
	}
}

// WithMemory sets the audit persistence store.
func WithMemory(s memory.Store) Option {
	return func(c *SwarmCoordinator) {
		if s != nil {
			c.memory = s
		}
	}
}

// WithWorkspace sets the shared artifact manager.
func WithWorkspace(m *workspace.Manager) Option {
	return func(c *SwarmCoordinator) {
		c.workspace = m
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(c *SwarmCoordinator) {
		if l != nil {
			c.logger = l
		}
	}
}
