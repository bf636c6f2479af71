package task

import (
	"sort"
	"sync"
	"time"

	"github.com/snapetech/mediadl/internal/provider"
)

// State is the lifecycle position of a Task.
type State string

const (
	StatePending   State = "pending"
	StateInFlight  State = "in_flight"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether s is Completed or Failed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Task tracks one claimed fetch. Key is the request URL.
type Task struct {
	ID        string       `json:"id"`
	Key       string       `json:"key"`
	Provider  provider.Tag `json:"provider"`
	Requester string       `json:"requester,omitempty"`
	State     State        `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Registry is the in-memory set of tasks keyed by URL.
// Every read and transition goes through mu; callers only ever see copies.
// Tasks live for the lifetime of the process.
type Registry struct {
	now func() time.Time

	mu    sync.Mutex
	tasks map[string]Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{now: time.Now, tasks: make(map[string]Task)}
}

// TryClaim registers t as in flight for t.Key.
// It returns false, leaving state untouched, when a task for the key is still
// pending or in flight. A completed or failed task is replaced so the key can
// be fetched again.
func (r *Registry) TryClaim(t Task) bool {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.tasks[t.Key]; ok && !cur.State.Terminal() {
		return false
	}
	t.State = StateInFlight
	t.Error = ""
	t.CreatedAt = now
	t.UpdatedAt = now
	r.tasks[t.Key] = t
	return true
}

// Get returns the task for key.
func (r *Registry) Get(key string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[key]
	return t, ok
}

// Complete marks the task for key completed and clears its error. No-op if absent.
func (r *Registry) Complete(key string) {
	r.transition(key, StateCompleted, "")
}

// Fail marks the task for key failed with message. No-op if absent.
func (r *Registry) Fail(key, message string) {
	r.transition(key, StateFailed, message)
}

func (r *Registry) transition(key string, state State, message string) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[key]
	if !ok {
		return
	}
	t.State = state
	t.Error = message
	t.UpdatedAt = now
	r.tasks[key] = t
}

// InFlight counts tasks that are not yet terminal.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if !t.State.Terminal() {
			n++
		}
	}
	return n
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Snapshot returns every task, newest first.
func (r *Registry) Snapshot() []Task {
	r.mu.Lock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
