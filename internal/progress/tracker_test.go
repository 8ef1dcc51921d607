package progress

import (
	"sync"
	"testing"
)

type recordingHook struct {
	mu    sync.Mutex
	snaps []Task
}

func (h *recordingHook) TaskUpdated(t Task) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snaps = append(h.snaps, t)
}

func TestTrackerLifecycle(t *testing.T) {
	hook := &recordingHook{}
	tr := New(hook)

	id := tr.StartTask("aws regions", 10)
	tr.AdvanceTask(id, 3)
	tr.AdvanceTask(id, 2)

	tasks := tr.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Name != "aws regions" || tasks[0].Done != 5 || tasks[0].Total != 10 {
		t.Errorf("task snapshot = %+v", tasks[0])
	}

	tr.HideTask(id)
	for _, task := range tr.Tasks() {
		if task.ID == id && !task.Hidden {
			t.Error("task not hidden")
		}
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.snaps) == 0 {
		t.Error("hook never notified")
	}
}

func TestTrackerConcurrentAdvance(t *testing.T) {
	tr := New(nil)
	id := tr.StartTask("fanout", 100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AdvanceTask(id, 1)
		}()
	}
	wg.Wait()

	for _, task := range tr.Tasks() {
		if task.ID == id && task.Done != 100 {
			t.Errorf("done = %d, want 100", task.Done)
		}
	}
}
