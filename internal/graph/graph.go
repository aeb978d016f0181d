// Package graph implements the task graph store: task definitions,
// dependency edges, and status-indexed sets for O(1) membership checks.
package graph

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kestrelops/hive/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrUnknownTask indicates a reference to a task that is not in the store.
var ErrUnknownTask = errors.New("unknown task")

// Store holds tasks, their dependency edges, and status-indexed sets.
// Tasks are never deleted; terminal tasks stay readable for audit and
// progress aggregation. All methods are safe for concurrent use:
// accessors return copies, and every mutation goes through a Mark
// method under the store lock.
type Store struct {
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
	// order preserves insertion order for deterministic iteration.
	order []string

	// Status index sets. A task ID lives in exactly one of these.
	pending   map[string]struct{}
	running   map[string]struct{}
	completed map[string]struct{}
	failed    map[string]struct{}

	mu sync.RWMutex
}

// NewStore creates an empty task graph store.
func NewStore() *Store {
	return &Store{
		nodes:     make(map[string]*models.Task),
		edges:     make(map[string][]string),
		pending:   make(map[string]struct{}),
		running:   make(map[string]struct{}),
		completed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
	}
}

// AddAll inserts a batch of tasks. Dependency references may point to
// tasks inside the batch or tasks already in the store; any reference
// to a task in neither is an error and the batch is not inserted.
// Returns ErrCycleDetected if the combined graph would contain a cycle.
func (s *Store) AddAll(tasks []*models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if _, dup := s.nodes[task.ID.ID]; dup {
			return fmt.Errorf("task %s already exists", task.ID.ID)
		}
		incoming[task.ID.ID] = struct{}{}
	}

	for _, task := range tasks {
		for _, dep := range task.Constraints.Dependencies {
			if _, inBatch := incoming[dep.ID]; inBatch {
				continue
			}
			if _, exists := s.nodes[dep.ID]; !exists {
				return fmt.Errorf("task %s depends on %w %s", task.ID.ID, ErrUnknownTask, dep.ID)
			}
		}
	}

	for _, task := range tasks {
		s.insertLocked(task)
	}

	if s.hasCycleLocked() {
		for _, task := range tasks {
			s.removeLocked(task.ID.ID)
		}
		return ErrCycleDetected
	}

	return nil
}

// Add inserts a single task. Its dependencies must already be present.
func (s *Store) Add(task *models.Task) error {
	return s.AddAll([]*models.Task{task})
}

// insertLocked stores its own copy of the task so later store writes
// never touch memory the caller still holds.
func (s *Store) insertLocked(task *models.Task) {
	id := task.ID.ID
	owned := *task
	s.nodes[id] = &owned
	s.order = append(s.order, id)
	deps := make([]string, 0, len(owned.Constraints.Dependencies))
	for _, dep := range owned.Constraints.Dependencies {
		deps = append(deps, dep.ID)
	}
	s.edges[id] = deps

	switch owned.Status {
	case models.TaskStatusRunning:
		s.running[id] = struct{}{}
	case models.TaskStatusCompleted:
		s.completed[id] = struct{}{}
	case models.TaskStatusFailed:
		s.failed[id] = struct{}{}
	default:
		owned.Status = models.TaskStatusQueued
		s.pending[id] = struct{}{}
	}
}

// removeLocked undoes an insert during batch rollback.
func (s *Store) removeLocked(id string) {
	delete(s.nodes, id)
	delete(s.edges, id)
	delete(s.pending, id)
	delete(s.running, id)
	delete(s.completed, id)
	delete(s.failed, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// hasCycleLocked detects back edges with depth-first coloring.
func (s *Store) hasCycleLocked() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(s.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		for _, dep := range s.edges[id] {
			switch colors[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for id := range s.nodes {
		if colors[id] == white && visit(id) {
			return true
		}
	}
	return false
}

// snapshot copies a stored task for lock-free use by the caller.
func snapshot(task *models.Task) *models.Task {
	cp := *task
	return &cp
}

// Get returns a copy of the task for an ID, or nil if not present.
func (s *Store) Get(id string) *models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return snapshot(task)
}

// Ready returns pending tasks whose dependencies have all completed,
// in insertion order. A task with no dependencies is trivially ready.
func (s *Store) Ready() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ready []*models.Task
	for _, id := range s.order {
		if _, isPending := s.pending[id]; !isPending {
			continue
		}
		satisfied := true
		for _, dep := range s.edges[id] {
			if _, done := s.completed[dep]; !done {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, snapshot(s.nodes[id]))
		}
	}
	return ready
}

// MarkRunning transitions a pending task to running and records the
// assignment. Returns an error for unknown tasks or invalid transitions;
// no state is mutated on error.
func (s *Store) MarkRunning(id string, agent models.AgentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("mark running: %w %s", ErrUnknownTask, id)
	}
	if _, isPending := s.pending[id]; !isPending {
		return fmt.Errorf("mark running: task %s is %s, not queued", id, task.Status)
	}

	delete(s.pending, id)
	s.running[id] = struct{}{}
	now := time.Now()
	task.Status = models.TaskStatusRunning
	task.AssignedTo = &agent
	task.StartedAt = &now
	return nil
}

// MarkCompleted transitions a running task to completed with its result.
// Completing a task already in a terminal state is a no-op and reports
// false so callers do not double-apply side effects.
func (s *Store) MarkCompleted(id string, result *models.TaskResult) (bool, error) {
	return s.finish(id, models.TaskStatusCompleted, result, "")
}

// MarkFailed transitions a running task to failed. Failing a task
// already in a terminal state is a no-op and reports false.
func (s *Store) MarkFailed(id string, errMsg string) (bool, error) {
	return s.finish(id, models.TaskStatusFailed, nil, errMsg)
}

func (s *Store) finish(id string, status models.TaskStatus, result *models.TaskResult, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.nodes[id]
	if !ok {
		return false, fmt.Errorf("finish: %w %s", ErrUnknownTask, id)
	}
	if task.Status.Terminal() {
		return false, nil
	}

	delete(s.pending, id)
	delete(s.running, id)
	if status == models.TaskStatusCompleted {
		s.completed[id] = struct{}{}
	} else {
		s.failed[id] = struct{}{}
	}

	now := time.Now()
	task.Status = status
	task.CompletedAt = &now
	task.Result = result
	task.Error = errMsg
	return true, nil
}

// PendingCount returns the number of queued tasks.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// RunningCount returns the number of running tasks.
func (s *Store) RunningCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.running)
}

// Running returns the running tasks in insertion order.
func (s *Store) Running() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Task
	for _, id := range s.order {
		if _, ok := s.running[id]; ok {
			out = append(out, snapshot(s.nodes[id]))
		}
	}
	return out
}

// Requeue returns a running task to the pending set and clears its
// assignment, so a failed agent binding does not strand the task.
func (s *Store) Requeue(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("requeue: %w %s", ErrUnknownTask, id)
	}
	if _, isRunning := s.running[id]; !isRunning {
		return fmt.Errorf("requeue: task %s is %s, not running", id, task.Status)
	}

	delete(s.running, id)
	s.pending[id] = struct{}{}
	task.Status = models.TaskStatusQueued
	task.AssignedTo = nil
	task.StartedAt = nil
	return nil
}

// IsCompleted reports whether the task is in the completed set.
func (s *Store) IsCompleted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.completed[id]
	return ok
}

// Size returns the number of tasks in the store.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// All returns a copy of every task in insertion order.
func (s *Store) All() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, snapshot(s.nodes[id]))
	}
	return out
}

// Dependents returns the IDs of tasks that depend on the given task.
func (s *Store) Dependents(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var deps []string
	for _, oid := range s.order {
		for _, dep := range s.edges[oid] {
			if dep == id {
				deps = append(deps, oid)
				break
			}
		}
	}
	return deps
}

// Progress tallies the states of an objective's owned tasks.
func (s *Store) Progress(owned []models.TaskID) models.ObjectiveProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := models.ObjectiveProgress{TotalTasks: len(owned)}
	for _, tid := range owned {
		task, ok := s.nodes[tid.ID]
		if !ok {
			continue
		}
		switch task.Status {
		case models.TaskStatusCompleted:
			p.CompletedTasks++
		case models.TaskStatusFailed:
			p.FailedTasks++
		case models.TaskStatusRunning:
			p.RunningTasks++
		}
	}
	if p.TotalTasks > 0 {
		p.PercentComplete = 100 * float64(p.CompletedTasks+p.FailedTasks) / float64(p.TotalTasks)
	}
	return p
}
