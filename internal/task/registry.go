package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Update is a partial task mutation. Nil fields are left untouched so
// concurrent writers to different fields cannot clobber each other's state.
type Update struct {
	Status   *Status
	Progress *float64
	Result   any
	Error    *Error
}

// Registry is the process-wide task store. It is the only state shared
// across concurrent jobs; every mutation is a single atomic merge by id.
// Contents are volatile and lost on restart.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Create allocates a fresh task in pending state and returns its id.
func (r *Registry) Create(kind Kind) string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &Task{
		ID:        id,
		Kind:      kind,
		Status:    StatusPending,
		Progress:  0.0,
		CreatedAt: time.Now(),
	}
	return id
}

// Update merges the given fields into the task if it exists. Updating an
// unknown id is a no-op; callers that require existence must Get first.
// Progress is clamped to [0, 1].
func (r *Registry) Update(id string, u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Progress != nil {
		p := *u.Progress
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		t.Progress = p
	}
	if u.Result != nil {
		t.Result = u.Result
	}
	if u.Error != nil {
		t.Error = u.Error
	}
}

// Get returns a snapshot copy of the task, so callers never hold a live
// reference across suspension points.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Delete removes the task if present.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}
