package server

import (
	"errors"
	"sync"
	"time"

	"github.com/fyrsmithlabs/debugd/internal/team"
)

// ErrTaskNotFound indicates a lookup for an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// Task statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task is one tracked debugging task.
type Task struct {
	ID        string          `json:"task_id"`
	Status    string          `json:"status"`
	Result    *team.RunResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Registry is a mutex-guarded task store keyed by task id.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Create registers a new pending task.
func (r *Registry) Create(id string) *Task {
	now := time.Now().UTC()
	task := &Task{ID: id, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	r.mu.Lock()
	r.tasks[id] = task
	r.mu.Unlock()
	return task
}

// Get returns a copy of the task with the given id.
func (r *Registry) Get(id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// SetProcessing marks the task as running.
func (r *Registry) SetProcessing(id string) {
	r.update(id, func(t *Task) {
		t.Status = StatusProcessing
	})
}

// Complete records the run's result. A result carrying an error and no
// stop reason marks the task failed.
func (r *Registry) Complete(id string, result *team.RunResult) {
	r.update(id, func(t *Task) {
		t.Result = result
		if result.Error != "" && result.StopReason == "" {
			t.Status = StatusFailed
			t.Error = result.Error
		} else {
			t.Status = StatusCompleted
		}
	})
}

// Fail marks the task failed with an error message.
func (r *Registry) Fail(id string, errMsg string) {
	r.update(id, func(t *Task) {
		t.Status = StatusFailed
		t.Error = errMsg
	})
}

// Count returns the number of tasks per status.
func (r *Registry) Count() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, t := range r.tasks {
		counts[t.Status]++
	}
	return counts
}

func (r *Registry) update(id string, fn func(*Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return
	}
	fn(task)
	task.UpdatedAt = time.Now().UTC()
}
