package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelops/hive/internal/config"
	"github.com/kestrelops/hive/internal/memory"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded swarm activity",
	Long: `Display the audit trail of the most recent swarm runs.

Shows task outcomes and topology decisions from the configured memory
store. Requires memory.path to be set; swarms run without persistence
leave nothing to show.`,
	RunE: runStatus,
}

// taskAuditRecord mirrors the coordinator's persisted task outcome.
type taskAuditRecord struct {
	TaskID  string `json:"task_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Agent   string `json:"agent"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	EndedAt string `json:"ended_at"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Memory.Path == "" {
		fmt.Println("No memory store configured. Set memory.path to record swarm activity.")
		return nil
	}
	if _, err := os.Stat(cfg.Memory.Path); os.IsNotExist(err) {
		fmt.Println("No recorded swarm activity. Run 'hive run <objective>' to start.")
		return nil
	}

	store, err := memory.NewSQLiteStore(cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	if err := printTaskOutcomes(store, cfg.Memory.Namespace); err != nil {
		return err
	}
	return printTopologyDecisions(store, cfg.Memory.Namespace)
}

func printTaskOutcomes(store memory.Store, namespace string) error {
	entries, err := store.Query(namespace, "task/", 20)
	if err != nil {
		return fmt.Errorf("query task outcomes: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No task outcomes recorded.")
		return nil
	}

	color.New(color.Bold).Println("Recent task outcomes")
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, entry := range entries {
		var record taskAuditRecord
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			continue
		}
		if record.Success {
			green.Printf("  ok   %-14s %s (%s)\n", record.Type, record.Name, record.Agent)
		} else {
			red.Printf("  fail %-14s %s: %s\n", record.Type, record.Name, record.Error)
		}
	}
	return nil
}

func printTopologyDecisions(store memory.Store, namespace string) error {
	entries, err := store.Query(namespace, "topology/", 10)
	if err != nil {
		return fmt.Errorf("query topology decisions: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	color.New(color.Bold).Println("Topology decisions")
	yellow := color.New(color.FgYellow)

	for _, entry := range entries {
		var decision struct {
			From   string  `json:"from"`
			To     string  `json:"to"`
			Reason string  `json:"reason"`
			Cost   float64 `json:"switching_cost"`
		}
		if err := json.Unmarshal(entry.Value, &decision); err != nil {
			continue
		}
		yellow.Printf("  %s -> %s: %s (cost %.2f)\n",
			decision.From, decision.To, decision.Reason, decision.Cost)
	}
	return nil
}
