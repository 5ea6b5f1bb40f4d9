package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScheduler_Every(t *testing.T) {
	sched := NewScheduler()

	called := false
	task := sched.Every("sim", 10*time.Millisecond, func(time.Time) { called = true })

	if task == nil {
		t.Fatal("Every returned nil")
	}
	if task.Name() != "sim" {
		t.Errorf("Expected name sim, got %s", task.Name())
	}
	if task.Active() {
		t.Error("Task should start stopped")
	}
	if sched.TaskCount() != 1 {
		t.Errorf("Expected 1 task, got %d", sched.TaskCount())
	}

	if n := sched.RunDue(epoch); n != 0 || called {
		t.Error("Stopped task should not run")
	}
}

func TestScheduler_RunDue(t *testing.T) {
	sched := NewScheduler()

	var runs int
	sched.Every("tick", 10*time.Millisecond, func(time.Time) { runs++ })
	sched.StartTask("tick")

	// first run is immediate
	if n := sched.RunDue(epoch); n != 1 {
		t.Fatalf("Expected 1 run, got %d", n)
	}
	// not yet due
	sched.RunDue(epoch.Add(5 * time.Millisecond))
	if runs != 1 {
		t.Errorf("Expected 1 run before the interval, got %d", runs)
	}
	sched.RunDue(epoch.Add(10 * time.Millisecond))
	if runs != 2 {
		t.Errorf("Expected 2 runs, got %d", runs)
	}

	// a long stall runs once, not once per missed interval
	sched.RunDue(epoch.Add(time.Second))
	if runs != 3 {
		t.Errorf("Expected missed runs to be skipped, got %d", runs)
	}
	sched.RunDue(epoch.Add(time.Second + 5*time.Millisecond))
	if runs != 3 {
		t.Errorf("Expected schedule to restart from the stall, got %d", runs)
	}
	if got := sched.GetTask("tick").Runs(); got != 3 {
		t.Errorf("Expected Runs()=3, got %d", got)
	}
}

func TestScheduler_StartStopTask(t *testing.T) {
	sched := NewScheduler()

	var runs int
	sched.Every("orbit", time.Millisecond, func(time.Time) { runs++ })

	if sched.StartTask("missing") {
		t.Error("StartTask should fail for unknown tasks")
	}
	sched.StartTask("orbit")
	sched.StartTask("orbit")
	if !sched.Active("orbit") {
		t.Error("Task should be active")
	}
	sched.RunDue(epoch)

	sched.StopTask("orbit")
	sched.RunDue(epoch.Add(time.Hour))
	if runs != 1 {
		t.Errorf("Stopped task ran, runs=%d", runs)
	}

	sched.StartTask("orbit")
	sched.RunDue(epoch.Add(time.Hour))
	if runs != 2 {
		t.Errorf("Restarted task should run immediately, runs=%d", runs)
	}

	sched.Remove("orbit")
	if sched.TaskCount() != 0 || sched.Active("orbit") {
		t.Error("Remove should drop the task")
	}
}

func TestScheduler_TaskStopsSibling(t *testing.T) {
	sched := NewScheduler()

	var bRan bool
	sched.Every("a", time.Millisecond, func(time.Time) { sched.StopTask("b") })
	sched.Every("b", time.Millisecond, func(time.Time) { bRan = true })
	sched.StartTask("a")
	sched.StartTask("b")

	if n := sched.RunDue(epoch); n != 1 {
		t.Errorf("Expected only a to run, got %d", n)
	}
	if bRan {
		t.Error("b ran after being stopped")
	}
}

func TestScheduler_PanicRecovery(t *testing.T) {
	sched := NewScheduler()

	var handled atomic.Int32
	sched.SetDefaultErrorHandler(func(task *Task, err interface{}) bool {
		handled.Add(1)
		return task.Name() == "keep"
	})
	sched.Every("keep", time.Millisecond, func(time.Time) { panic("boom") })
	sched.Every("drop", time.Millisecond, func(time.Time) { panic("boom") })
	sched.StartTask("keep")
	sched.StartTask("drop")

	sched.RunDue(epoch)

	if handled.Load() != 2 {
		t.Errorf("Expected 2 handled panics, got %d", handled.Load())
	}
	if !sched.Active("keep") {
		t.Error("Task whose handler returned true should stay scheduled")
	}
	if sched.GetTask("drop") != nil {
		t.Error("Task whose handler returned false should be removed")
	}
}

func TestScheduler_PanicWithoutHandlerRemovesTask(t *testing.T) {
	sched := NewScheduler()
	sched.Every("bad", time.Millisecond, func(time.Time) { panic("boom") })
	sched.StartTask("bad")
	sched.RunDue(epoch)
	if sched.TaskCount() != 0 {
		t.Error("Panicking task without a handler should be removed")
	}
}

func TestScheduler_Loop(t *testing.T) {
	sched := NewScheduler()

	var runs atomic.Int32
	sched.Every("loop", 2*time.Millisecond, func(time.Time) { runs.Add(1) })
	sched.StartTask("loop")

	sched.Start(context.Background())
	if !sched.IsRunning() {
		t.Error("Scheduler should be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if runs.Load() < 3 {
		t.Fatalf("Expected at least 3 runs, got %d", runs.Load())
	}

	sched.Stop()
	if sched.IsRunning() {
		t.Error("Scheduler should have stopped")
	}
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Error("Task ran after Stop")
	}
}

func TestScheduler_ContextCancel(t *testing.T) {
	sched := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for sched.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sched.IsRunning() {
		t.Error("Scheduler should stop when its context is cancelled")
	}
	sched.Stop()
}

func TestScheduler_Close(t *testing.T) {
	sched := NewScheduler()
	sched.Every("a", time.Millisecond, func(time.Time) {})
	sched.StartTask("a")
	sched.Start(context.Background())

	sched.Close()
	sched.Close()

	if sched.TaskCount() != 0 {
		t.Error("Close should drop every task")
	}
	sched.Start(context.Background())
	if sched.IsRunning() {
		t.Error("Closed scheduler should not restart")
	}
}

func TestFrameToken(t *testing.T) {
	var tok FrameToken[[2]float64]

	if tok.Flush(func([2]float64) { t.Error("Flush ran with nothing pending") }) {
		t.Error("Flush should report false when empty")
	}

	tok.Request([2]float64{100, 100})
	tok.Request([2]float64{640, 480})
	if !tok.Pending() {
		t.Error("Expected pending value")
	}

	var got [2]float64
	calls := 0
	tok.Flush(func(v [2]float64) { got = v; calls++ })
	tok.Flush(func(v [2]float64) { calls++ })
	if calls != 1 || got != [2]float64{640, 480} {
		t.Errorf("Expected one flush of the latest value, got %v after %d calls", got, calls)
	}

	tok.Request([2]float64{1, 1})
	tok.Cancel()
	if tok.Pending() {
		t.Error("Cancel should drop the pending value")
	}
}
