package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelops/hive/internal/config"
	"github.com/kestrelops/hive/internal/coordinator"
	"github.com/kestrelops/hive/internal/exec"
	"github.com/kestrelops/hive/internal/memory"
	"github.com/kestrelops/hive/internal/mesh"
	"github.com/kestrelops/hive/internal/workspace"
	"github.com/kestrelops/hive/pkg/models"
)

var runWorkflowFile string
var runAgentSpec string

var runCmd = &cobra.Command{
	Use:   "run [objective]",
	Short: "Run an objective with a swarm of agents",
	Long: `Run decomposes an objective into tasks and coordinates agents until
every task reaches a terminal state.

The objective is either a natural-language description:

  hive run "Build a REST API for user accounts"

or an explicit task graph from a workflow file:

  hive run --workflow release.yaml

The --agents flag controls the swarm shape, e.g.
--agents developer=2,tester=1,reviewer=1.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runWorkflowFile, "workflow", "", "Workflow YAML file with explicit tasks")
	runCmd.Flags().StringVar(&runAgentSpec, "agents", "developer=2,tester=1,reviewer=1", "Swarm shape as type=count pairs")
}

func runRun(cmd *cobra.Command, args []string) error {
	description := strings.Join(args, " ")
	if description == "" && runWorkflowFile == "" {
		return fmt.Errorf("an objective description or --workflow is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	counts, err := parseAgentSpec(runAgentSpec)
	if err != nil {
		return err
	}

	opts, cleanup, err := buildCollaborators(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	coord := coordinator.New(cfg, opts...)

	for agentType, n := range counts {
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("%s-%d", agentType, i+1)
			if _, err := coord.RegisterAgent(name, agentType, capsForType(agentType)); err != nil {
				return fmt.Errorf("register agent %s: %w", name, err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	obj, err := createObjective(ctx, coord, description)
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Printf("objective %s: %d tasks, topology %s\n",
		obj.ID[:8], len(obj.Tasks), coord.CurrentTopology())

	return watchEvents(ctx, coord, obj.ID)
}

// createObjective builds the task graph from the workflow file or by
// decomposing the description.
func createObjective(ctx context.Context, coord *coordinator.SwarmCoordinator, description string) (*models.Objective, error) {
	if runWorkflowFile == "" {
		return coord.CreateObjective(ctx, description, "auto")
	}

	wf, err := coordinator.LoadWorkflow(runWorkflowFile)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = wf.Description
	}
	return coord.CreateTasks(ctx, description, wf.Tasks)
}

// watchEvents streams coordinator events to the terminal until the
// objective completes or the context is cancelled.
func watchEvents(ctx context.Context, coord *coordinator.SwarmCoordinator, objectiveID string) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	for {
		select {
		case <-ctx.Done():
			yellow.Println("interrupted, stopping swarm")
			return nil
		case ev, ok := <-coord.Events():
			if !ok {
				return nil
			}
			switch ev.Type {
			case coordinator.EventTaskStarted:
				faint.Printf("  started   %s\n", ev.TaskName)
			case coordinator.EventTaskCompleted:
				green.Printf("  completed %s\n", ev.TaskName)
			case coordinator.EventTaskFailed:
				red.Printf("  failed    %s: %s\n", ev.TaskName, ev.Message)
			case coordinator.EventHandoffCreated:
				faint.Printf("  handoff   %s\n", ev.TaskName)
			case coordinator.EventTopologySwitched:
				yellow.Printf("  topology  -> %s (%s)\n", ev.Topology, ev.Message)
			case coordinator.EventAgentOffline:
				yellow.Printf("  offline   %s\n", ev.Message)
			case coordinator.EventObjectiveCompleted:
				if ev.ObjectiveID != objectiveID {
					continue
				}
				snapshot := coord.Objective(objectiveID)
				if snapshot.Progress.FailedTasks > 0 {
					red.Printf("objective finished: %d/%d tasks failed\n",
						snapshot.Progress.FailedTasks, snapshot.Progress.TotalTasks)
				} else {
					green.Printf("objective finished: all %d tasks completed\n",
						snapshot.Progress.TotalTasks)
				}
				return nil
			}
		}
	}
}

// buildCollaborators wires the configured executor, memory store,
// workspace, and mesh. The returned cleanup closes what the
// coordinator does not own yet on early error paths.
func buildCollaborators(cfg *config.Config) ([]coordinator.Option, func(), error) {
	var opts []coordinator.Option
	cleanup := func() {}

	switch cfg.Executor.Mode {
	case "anthropic":
		executor, err := exec.NewAnthropic(exec.AnthropicConfig{
			Model:      cfg.Executor.Model,
			APIKey:     cfg.Executor.APIKey,
			UseBedrock: cfg.Executor.UseBedrock,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("anthropic executor: %w", err)
		}
		opts = append(opts, coordinator.WithExecutor(executor))
	default:
		opts = append(opts, coordinator.WithExecutor(exec.NewLocal(cfg.Executor.Command)))
	}

	if cfg.Memory.Path != "" {
		store, err := memory.NewSQLiteStore(cfg.Memory.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("memory store: %w", err)
		}
		opts = append(opts, coordinator.WithMemory(store))
	}

	if cfg.Workspace.Root != "" {
		manager, err := workspace.NewManager(cfg.Workspace.Root, slog.Default())
		if err != nil {
			return nil, cleanup, fmt.Errorf("workspace: %w", err)
		}
		opts = append(opts, coordinator.WithWorkspace(manager))
	}

	if network := buildMesh(cfg); network != nil {
		opts = append(opts, coordinator.WithMesh(network))
	}

	cwd, err := os.Getwd()
	if err == nil {
		opts = append(opts, coordinator.WithLogger(coordinator.NewDebugLoggerForDir(cwd)))
	}

	return opts, cleanup, nil
}

// buildMesh constructs the peer-coordination network. Hierarchical-only
// swarms skip the bus entirely.
func buildMesh(cfg *config.Config) mesh.Network {
	switch cfg.Topology.Initial {
	case "mesh", "hybrid", "auto":
	default:
		return nil
	}

	if cfg.Mesh.URL != "" {
		return mesh.NewNATSNetwork(cfg.Mesh.URL, "hive")
	}
	if cfg.Mesh.Embedded {
		network, err := mesh.NewEmbeddedNetwork(mesh.BusConfig{
			Port:    cfg.Mesh.Port,
			DataDir: cfg.Mesh.DataDir,
		}, "hive")
		if err != nil {
			color.New(color.FgYellow).Fprintf(os.Stderr,
				"embedded mesh unavailable (%v), staying hierarchical\n", err)
			return nil
		}
		return network
	}
	return nil
}

// parseAgentSpec parses "developer=2,tester=1" into typed counts.
func parseAgentSpec(spec string) (map[models.AgentType]int, error) {
	counts := make(map[models.AgentType]int)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, countStr, found := strings.Cut(pair, "=")
		count := 1
		if found {
			n, err := strconv.Atoi(countStr)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid agent count in %q", pair)
			}
			count = n
		}
		agentType := models.AgentType(name)
		if !agentType.Valid() {
			return nil, fmt.Errorf("unknown agent type %q", name)
		}
		counts[agentType] += count
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("at least one agent required")
	}
	return counts, nil
}

// capsForType returns the default capability set for an agent type.
func capsForType(t models.AgentType) models.AgentCapabilities {
	switch t {
	case models.AgentTypeDeveloper:
		return models.AgentCapabilities{
			CodeGeneration: true, APIIntegration: true,
			FileSystem: true, Terminal: true,
		}
	case models.AgentTypeTester:
		return models.AgentCapabilities{Testing: true, FileSystem: true, Terminal: true}
	case models.AgentTypeReviewer:
		return models.AgentCapabilities{CodeReview: true, Analysis: true}
	case models.AgentTypeResearcher:
		return models.AgentCapabilities{Research: true, WebSearch: true}
	case models.AgentTypeAnalyzer:
		return models.AgentCapabilities{Analysis: true, Research: true}
	case models.AgentTypeDocumenter:
		return models.AgentCapabilities{Documentation: true}
	case models.AgentTypeCoordinator:
		return models.AgentCapabilities{Analysis: true}
	case models.AgentTypeMonitor:
		return models.AgentCapabilities{Analysis: true}
	default:
		// Specialists take anything.
		return models.AgentCapabilities{
			CodeGeneration: true, CodeReview: true, Testing: true,
			Documentation: true, Research: true, Analysis: true,
			WebSearch: true, APIIntegration: true,
			FileSystem: true, Terminal: true,
		}
	}
}
