// Package progress tracks named tasks with counters. The pipeline and
// the vendor adapters report through it; the CLI can attach a Hook to
// render the counters, tests attach nothing.
package progress

import (
	"sort"
	"sync"
)

// Task is a point-in-time snapshot of one tracked task.
type Task struct {
	ID     int
	Name   string
	Total  int
	Done   int
	Hidden bool
}

// Hook receives task snapshots as they change. Calls may come from
// adapter worker goroutines; implementations must be quick and must not
// call back into the tracker.
type Hook interface {
	TaskUpdated(Task)
}

// Tracker is a thread-safe task registry. The zero value is not usable;
// call New.
type Tracker struct {
	mu    sync.Mutex
	next  int
	tasks map[int]*Task
	hook  Hook
}

// New creates a tracker. hook may be nil.
func New(hook Hook) *Tracker {
	return &Tracker{tasks: make(map[int]*Task), hook: hook}
}

// StartTask registers a named task with an expected total and returns its id.
func (t *Tracker) StartTask(name string, total int) int {
	t.mu.Lock()
	t.next++
	id := t.next
	task := &Task{ID: id, Name: name, Total: total}
	t.tasks[id] = task
	snap := *task
	t.mu.Unlock()
	t.notify(snap)
	return id
}

// AdvanceTask increments a task's completion counter. Safe to call from
// concurrent workers.
func (t *Tracker) AdvanceTask(id, by int) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	task.Done += by
	snap := *task
	t.mu.Unlock()
	t.notify(snap)
}

// HideTask marks a finished task as hidden so renderers drop it.
func (t *Tracker) HideTask(id int) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	task.Hidden = true
	snap := *task
	t.mu.Unlock()
	t.notify(snap)
}

// Tasks returns a snapshot of all tasks ordered by creation.
func (t *Tracker) Tasks() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Tracker) notify(snap Task) {
	if t.hook != nil {
		t.hook.TaskUpdated(snap)
	}
}
