// Package config handles configuration loading for hive.
// It supports XDG config paths, project-level overrides, and environment
// variables prefixed with HIVE_.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunables for the swarm coordinator and its
// supporting services.
type Config struct {
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Topology    TopologyConfig    `mapstructure:"topology"`
	Health      HealthConfig      `mapstructure:"health"`
	Memory      MemoryConfig      `mapstructure:"memory"`
	Mesh        MeshConfig        `mapstructure:"mesh"`
	Workspace   WorkspaceConfig   `mapstructure:"workspace"`
	Executor    ExecutorConfig    `mapstructure:"executor"`
}

// CoordinatorConfig holds scheduler loop settings.
type CoordinatorConfig struct {
	// SchedulingInterval is the scheduler tick period.
	SchedulingInterval time.Duration `mapstructure:"scheduling_interval"`
	// ProgressInterval is the objective progress-aggregation period.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	// LearningInterval is the pattern-learning analysis period.
	LearningInterval time.Duration `mapstructure:"learning_interval"`
	// MaxConcurrentTasks caps how many tasks one tick may dispatch.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
	// WorkloadIncrement is added to an agent's workload per assignment
	// and subtracted on completion, clamped to [0,1].
	WorkloadIncrement float64 `mapstructure:"workload_increment"`
	// AgentDispatchSpacing is the minimum gap between successive
	// execution calls to the same agent.
	AgentDispatchSpacing time.Duration `mapstructure:"agent_dispatch_spacing"`
	// EventBuffer is the coordinator event channel capacity.
	EventBuffer int `mapstructure:"event_buffer"`
}

// TopologyConfig holds adaptive topology settings.
type TopologyConfig struct {
	// Initial is the topology the coordinator starts in.
	Initial string `mapstructure:"initial"`
	// EvalInterval is the topology evaluation period.
	EvalInterval time.Duration `mapstructure:"eval_interval"`
	// MeshActivationThreshold is the minimum agent count before mesh
	// or hybrid topologies are considered.
	MeshActivationThreshold int `mapstructure:"mesh_activation_threshold"`
	// MaxSwitchingCost blocks switches whose estimated cost is at or
	// above this value.
	MaxSwitchingCost float64 `mapstructure:"max_switching_cost"`
	// MinViolations is how many performance targets must be missed
	// before a switch is executed.
	MinViolations int `mapstructure:"min_violations"`
	// DecisionWindow bounds the retained AdaptiveDecision records.
	DecisionWindow int `mapstructure:"decision_window"`
	// Targets are the performance thresholds checked each evaluation.
	Targets TargetsConfig `mapstructure:"targets"`
}

// TargetsConfig holds the four performance targets.
type TargetsConfig struct {
	MaxLatencyMS     float64 `mapstructure:"max_latency_ms"`
	MinThroughput    float64 `mapstructure:"min_throughput"`
	MinReliability   float64 `mapstructure:"min_reliability"`
	MaxLoadImbalance float64 `mapstructure:"max_load_imbalance"`
}

// HealthConfig holds agent liveness settings.
type HealthConfig struct {
	// CheckInterval is the heartbeat sweep period.
	CheckInterval time.Duration `mapstructure:"check_interval"`
	// IdleTimeout marks an idle agent offline after this silence.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// BusyGrace is the longer silence allowed for agents mid-task.
	BusyGrace time.Duration `mapstructure:"busy_grace"`
}

// MemoryConfig holds audit persistence settings.
type MemoryConfig struct {
	// Path is the sqlite database file. Empty disables persistence.
	Path string `mapstructure:"path"`
	// Namespace scopes this swarm's entries.
	Namespace string `mapstructure:"namespace"`
}

// MeshConfig holds peer-coordination bus settings.
type MeshConfig struct {
	// Embedded starts an in-process NATS server when true.
	Embedded bool `mapstructure:"embedded"`
	// URL is the NATS server address when Embedded is false.
	URL string `mapstructure:"url"`
	// Port is the embedded server's listen port.
	Port int `mapstructure:"port"`
	// DataDir is the embedded server's store directory.
	DataDir string `mapstructure:"data_dir"`
}

// WorkspaceConfig holds shared-artifact settings.
type WorkspaceConfig struct {
	// Root is the directory shared areas are created under.
	Root string `mapstructure:"root"`
	// Watch enables change notifications on shared areas.
	Watch bool `mapstructure:"watch"`
}

// ExecutorConfig holds task execution settings.
type ExecutorConfig struct {
	// Mode selects the executor: "local" or "anthropic".
	Mode string `mapstructure:"mode"`
	// Command is the local executor's command template.
	Command string `mapstructure:"command"`
	// Model is the anthropic executor's model name.
	Model string `mapstructure:"model"`
	// APIKey is the anthropic API key; ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes the anthropic executor through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// Timeout is the per-task execution timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration with the following precedence (highest first):
// environment variables (HIVE_*), project config (.hive.yaml in the
// working directory), user config (~/.config/hive/config.yaml), defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if project := findProjectConfig(); project != "" {
		pv := viper.New()
		pv.SetConfigFile(project)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("HIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("executor.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Executor.APIKey = expandEnv(cfg.Executor.APIKey)

	return cfg, nil
}

// Default returns the built-in configuration without touching the
// filesystem or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Unmarshal of in-memory defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coordinator.scheduling_interval", 2*time.Second)
	v.SetDefault("coordinator.progress_interval", 5*time.Second)
	v.SetDefault("coordinator.learning_interval", 60*time.Second)
	v.SetDefault("coordinator.max_concurrent_tasks", 10)
	v.SetDefault("coordinator.workload_increment", 0.3)
	v.SetDefault("coordinator.agent_dispatch_spacing", time.Second)
	v.SetDefault("coordinator.event_buffer", 256)

	v.SetDefault("topology.initial", "hierarchical")
	v.SetDefault("topology.eval_interval", 30*time.Second)
	v.SetDefault("topology.mesh_activation_threshold", 4)
	v.SetDefault("topology.max_switching_cost", 0.3)
	v.SetDefault("topology.min_violations", 2)
	v.SetDefault("topology.decision_window", 50)
	v.SetDefault("topology.targets.max_latency_ms", 2000.0)
	v.SetDefault("topology.targets.min_throughput", 0.5)
	v.SetDefault("topology.targets.min_reliability", 0.8)
	v.SetDefault("topology.targets.max_load_imbalance", 0.4)

	v.SetDefault("health.check_interval", 10*time.Second)
	v.SetDefault("health.idle_timeout", 90*time.Second)
	v.SetDefault("health.busy_grace", 600*time.Second)

	v.SetDefault("memory.path", "")
	v.SetDefault("memory.namespace", "hive")

	v.SetDefault("mesh.embedded", true)
	v.SetDefault("mesh.url", "")
	v.SetDefault("mesh.port", 0)
	v.SetDefault("mesh.data_dir", "")

	v.SetDefault("workspace.root", "")
	v.SetDefault("workspace.watch", false)

	v.SetDefault("executor.mode", "local")
	v.SetDefault("executor.command", "")
	v.SetDefault("executor.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("executor.use_bedrock", false)
	v.SetDefault("executor.timeout", 10*time.Minute)
}

// userConfigDir returns the XDG config directory for hive.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hive")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "hive")
}

// findProjectConfig walks up from the working directory looking for
// .hive.yaml. Returns "" if none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".hive.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references in a config value.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
