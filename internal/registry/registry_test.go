package registry

import (
	"testing"
	"time"

	"github.com/kestrelops/hive/pkg/models"
)

func TestRegisterAssignsInstanceSequence(t *testing.T) {
	r := New("swarm")

	a1, err := r.Register("dev-one", models.AgentTypeDeveloper, models.AgentCapabilities{CodeGeneration: true})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	a2, err := r.Register("dev-two", models.AgentTypeDeveloper, models.AgentCapabilities{CodeGeneration: true})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	a3, err := r.Register("tester", models.AgentTypeTester, models.AgentCapabilities{Testing: true})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if a1.ID.Instance != 1 || a2.ID.Instance != 2 {
		t.Errorf("developer instances = %d, %d, want 1, 2", a1.ID.Instance, a2.ID.Instance)
	}
	if a3.ID.Instance != 1 {
		t.Errorf("tester instance = %d, want 1", a3.ID.Instance)
	}
	if a1.Status != models.AgentStatusIdle {
		t.Errorf("new agent status = %s, want idle", a1.Status)
	}
	if a1.Metrics.SuccessRate != 1.0 {
		t.Errorf("new agent success rate = %v, want 1.0", a1.Metrics.SuccessRate)
	}
}

func TestRegisterRejectsInvalidType(t *testing.T) {
	r := New("swarm")
	if _, err := r.Register("x", models.AgentType("wizard"), models.AgentCapabilities{}); err == nil {
		t.Error("expected error for invalid agent type")
	}
}

func TestIdlePreservesRegistrationOrder(t *testing.T) {
	r := New("swarm")
	a1, _ := r.Register("one", models.AgentTypeDeveloper, models.AgentCapabilities{})
	a2, _ := r.Register("two", models.AgentTypeDeveloper, models.AgentCapabilities{})
	a3, _ := r.Register("three", models.AgentTypeDeveloper, models.AgentCapabilities{})

	if err := r.MarkBusy(a2.ID.ID, models.TaskID{ID: "t"}, 0.3); err != nil {
		t.Fatalf("MarkBusy error: %v", err)
	}

	idle := r.Idle()
	if len(idle) != 2 || idle[0].ID.ID != a1.ID.ID || idle[1].ID.ID != a3.ID.ID {
		t.Errorf("Idle order = %v, want [one, three]", names(idle))
	}
}

func TestMarkBusyGuardsStateMachine(t *testing.T) {
	r := New("swarm")
	a, _ := r.Register("dev", models.AgentTypeDeveloper, models.AgentCapabilities{})

	if err := r.MarkBusy(a.ID.ID, models.TaskID{ID: "t1"}, 0.3); err != nil {
		t.Fatalf("MarkBusy error: %v", err)
	}
	got := r.Get(a.ID.ID)
	if got.Workload != 0.3 {
		t.Errorf("Workload = %v, want 0.3", got.Workload)
	}
	if got.CurrentTask == nil || got.CurrentTask.ID != "t1" {
		t.Errorf("CurrentTask = %v, want t1", got.CurrentTask)
	}

	// A busy agent cannot take a second task.
	if err := r.MarkBusy(a.ID.ID, models.TaskID{ID: "t2"}, 0.3); err == nil {
		t.Error("expected error assigning to busy agent")
	}
}

func TestWorkloadClamps(t *testing.T) {
	r := New("swarm")
	a, _ := r.Register("dev", models.AgentTypeDeveloper, models.AgentCapabilities{})

	for i := 0; i < 4; i++ {
		if err := r.MarkBusy(a.ID.ID, models.TaskID{ID: "t"}, 0.3); err != nil {
			t.Fatalf("MarkBusy error: %v", err)
		}
		if err := r.Release(a.ID.ID, 0, true); err != nil {
			t.Fatalf("Release error: %v", err)
		}
	}
	if got := r.Get(a.ID.ID).Workload; got > 1.0 {
		t.Errorf("Workload = %v, want clamped to 1.0", got)
	}

	if err := r.Release(a.ID.ID, 5.0, true); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if got := r.Get(a.ID.ID).Workload; got != 0 {
		t.Errorf("Workload = %v, want floored at 0", got)
	}
}

func TestReleaseUpdatesMetrics(t *testing.T) {
	r := New("swarm")
	a, _ := r.Register("dev", models.AgentTypeDeveloper, models.AgentCapabilities{})

	_ = r.MarkBusy(a.ID.ID, models.TaskID{ID: "t1"}, 0.3)
	_ = r.Release(a.ID.ID, 0.3, true)
	_ = r.MarkBusy(a.ID.ID, models.TaskID{ID: "t2"}, 0.3)
	_ = r.Release(a.ID.ID, 0.3, false)

	got := r.Get(a.ID.ID)
	if got.Metrics.TasksCompleted != 1 || got.Metrics.TasksFailed != 1 {
		t.Errorf("metrics = %+v, want 1 completed, 1 failed", got.Metrics)
	}
	if got.Metrics.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", got.Metrics.SuccessRate)
	}
	if got.Status != models.AgentStatusIdle {
		t.Errorf("status = %s, want idle", got.Status)
	}
	if got.CurrentTask != nil {
		t.Error("CurrentTask should be cleared after release")
	}
}

func TestSweepOfflineBusyGraceAsymmetry(t *testing.T) {
	r := New("swarm")
	idle, _ := r.Register("idler", models.AgentTypeDeveloper, models.AgentCapabilities{})
	busy, _ := r.Register("worker", models.AgentTypeDeveloper, models.AgentCapabilities{})
	_ = r.MarkBusy(busy.ID.ID, models.TaskID{ID: "t"}, 0.3)

	// 91 seconds of silence: the idle agent goes offline, the busy one
	// is inside its grace window and stays busy.
	now := time.Now().Add(91 * time.Second)
	swept := r.SweepOffline(now, 90*time.Second, 600*time.Second)

	if len(swept) != 1 || swept[0].ID.ID != idle.ID.ID {
		t.Fatalf("swept = %v, want only the idle agent", names(swept))
	}
	if got := r.Get(idle.ID.ID).Status; got != models.AgentStatusOffline {
		t.Errorf("idle agent status = %s, want offline", got)
	}
	if got := r.Get(busy.ID.ID).Status; got != models.AgentStatusBusy {
		t.Errorf("busy agent status = %s, want busy", got)
	}

	// Past the busy grace window the busy agent goes offline too.
	now = time.Now().Add(601 * time.Second)
	swept = r.SweepOffline(now, 90*time.Second, 600*time.Second)
	if len(swept) != 1 || swept[0].ID.ID != busy.ID.ID {
		t.Fatalf("second sweep = %v, want only the busy agent", names(swept))
	}
}

func TestHeartbeatRevivesOfflineAgent(t *testing.T) {
	r := New("swarm")
	a, _ := r.Register("dev", models.AgentTypeDeveloper, models.AgentCapabilities{})

	r.SweepOffline(time.Now().Add(2*time.Hour), 90*time.Second, 600*time.Second)
	if got := r.Get(a.ID.ID).Status; got != models.AgentStatusOffline {
		t.Fatalf("status = %s, want offline", got)
	}

	if err := r.Heartbeat(a.ID.ID); err != nil {
		t.Fatalf("Heartbeat error: %v", err)
	}
	if got := r.Get(a.ID.ID).Status; got != models.AgentStatusIdle {
		t.Errorf("status = %s, want idle after heartbeat", got)
	}
}

func TestLiveCountAndWorkloadStats(t *testing.T) {
	r := New("swarm")
	a1, _ := r.Register("one", models.AgentTypeDeveloper, models.AgentCapabilities{})
	a2, _ := r.Register("two", models.AgentTypeDeveloper, models.AgentCapabilities{})
	_, _ = r.Register("three", models.AgentTypeDeveloper, models.AgentCapabilities{})

	_ = r.MarkBusy(a1.ID.ID, models.TaskID{ID: "t"}, 0.4)
	if r.LiveCount() != 3 {
		t.Errorf("LiveCount = %d, want 3", r.LiveCount())
	}

	r.SweepOffline(time.Now().Add(2*time.Hour), 90*time.Second, time.Hour)
	// a1 is busy past grace, a2 and three were idle past timeout.
	if r.LiveCount() != 0 {
		t.Errorf("LiveCount = %d, want 0 after sweep", r.LiveCount())
	}

	_ = r.Heartbeat(a1.ID.ID)
	_ = r.Heartbeat(a2.ID.ID)
	mean, stddev := r.WorkloadStats()
	if mean != 0.2 {
		t.Errorf("mean = %v, want 0.2", mean)
	}
	if stddev != 0.2 {
		t.Errorf("stddev = %v, want 0.2", stddev)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	r := New("swarm")
	a, _ := r.Register("dev", models.AgentTypeDeveloper, models.AgentCapabilities{})

	// Mutating a returned agent must not leak into the registry.
	a.Status = models.AgentStatusOffline
	a.Workload = 0.9
	if got := r.Get(a.ID.ID); got.Status != models.AgentStatusIdle || got.Workload != 0 {
		t.Errorf("registry state changed through a returned copy: %+v", got)
	}

	r.Get(a.ID.ID).Status = models.AgentStatusBusy
	r.All()[0].Status = models.AgentStatusBusy
	if got := r.Get(a.ID.ID).Status; got != models.AgentStatusIdle {
		t.Errorf("status = %s, want idle", got)
	}
	if len(r.Idle()) != 1 {
		t.Error("agent should still be idle")
	}
}

func names(agents []*models.Agent) []string {
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Name)
	}
	return out
}
