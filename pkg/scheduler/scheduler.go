package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TaskFunc is the body of a recurring task
type TaskFunc func(now time.Time)

// ErrorHandler handles panics raised by a task.
// Returns true to keep the task scheduled, false to remove it.
type ErrorHandler func(task *Task, err interface{}) bool

// Task is a named recurring job
type Task struct {
	name     string
	interval time.Duration
	fn       TaskFunc

	// guarded by the scheduler's mutex
	next time.Time

	active atomic.Bool
	runs   atomic.Uint64

	onError ErrorHandler
}

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// idleWait bounds how long the loop sleeps with nothing scheduled
const idleWait = time.Second

// Scheduler runs named tasks at fixed intervals. Tasks run one at a time on
// the scheduler's goroutine, so task bodies never race each other.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	wake    chan struct{}
	running atomic.Bool
	closed  atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}

	defaultError ErrorHandler
}

// NewScheduler creates a new scheduler instance
func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: make(map[string]*Task),
		wake:  make(chan struct{}, 1),
	}
}

// SetDefaultErrorHandler sets the error handler used by tasks without one
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultError = handler
}

// Every registers fn to run every interval under name, replacing any task
// with the same name. The task is created stopped.
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFunc) *Task {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := &Task{name: name, interval: interval, fn: fn}

	s.mu.Lock()
	t.onError = s.defaultError
	s.tasks[name] = t
	s.mu.Unlock()

	if debugLog != nil {
		debugLog("[Scheduler] registered task", name, "every", interval)
	}
	return t
}

// StartTask activates a task. Its first run is due immediately. Starting an
// active task is a no-op.
func (s *Scheduler) StartTask(name string) bool {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok && t.active.CompareAndSwap(false, true) {
		t.next = time.Time{}
	}
	s.mu.Unlock()
	if ok {
		s.poke()
	}
	return ok
}

// StopTask deactivates a task without removing it
func (s *Scheduler) StopTask(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if ok {
		t.active.Store(false)
	}
	return ok
}

// Remove unregisters a task
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		t.active.Store(false)
		delete(s.tasks, name)
	}
}

// Active reports whether a task exists and is running
func (s *Scheduler) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	return ok && t.active.Load()
}

// GetTask returns a task by name
func (s *Scheduler) GetTask(name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[name]
}

// TaskCount returns the number of registered tasks
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// RunDue runs every active task whose deadline is not after now and returns
// how many ran. A task that fell more than one interval behind skips the
// missed runs.
func (s *Scheduler) RunDue(now time.Time) int {
	s.mu.Lock()
	var due []*Task
	for _, t := range s.tasks {
		if !t.active.Load() || t.next.After(now) {
			continue
		}
		if t.next.IsZero() {
			t.next = now.Add(t.interval)
		} else {
			t.next = t.next.Add(t.interval)
			if !t.next.After(now) {
				t.next = now.Add(t.interval)
			}
		}
		due = append(due, t)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].name < due[j].name })
	ran := 0
	for _, t := range due {
		// a task stopped by an earlier one this round must not run
		if !t.active.Load() {
			continue
		}
		s.runTask(t, now)
		ran++
	}
	return ran
}

// runTask runs a single task with panic recovery
func (s *Scheduler) runTask(t *Task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.handleTaskError(t, r)
		}
	}()
	t.fn(now)
	t.runs.Add(1)
}

// handleTaskError handles a panic during a task run
func (s *Scheduler) handleTaskError(t *Task, err interface{}) {
	errorMsg := fmt.Sprintf("task %s panic: %v\n%s", t.name, err, debug.Stack())
	if debugLog != nil {
		debugLog("[Scheduler]", errorMsg)
	}

	shouldContinue := false
	if t.onError != nil {
		shouldContinue = t.onError(t, errorMsg)
	}
	if !shouldContinue {
		s.mu.Lock()
		if s.tasks[t.name] == t {
			delete(s.tasks, t.name)
		}
		s.mu.Unlock()
		t.active.Store(false)
	}
}

// untilNext returns how long the loop may sleep before a task is due
func (s *Scheduler) untilNext(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := idleWait
	for _, t := range s.tasks {
		if !t.active.Load() {
			continue
		}
		d := t.next.Sub(now)
		if d < 0 {
			d = 0
		}
		if d < wait {
			wait = d
		}
	}
	return wait
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start begins the scheduler loop. It stops when ctx is cancelled or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) {
	if s.closed.Load() || !s.running.CompareAndSwap(false, true) {
		if debugLog != nil {
			debugLog("[Scheduler] Scheduler already running or closed")
		}
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	go s.loop(ctx, done)
}

// Stop stops the loop and waits for the running task to return. Tasks keep
// their state and resume on the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops the loop and drops every task. A closed scheduler cannot be
// restarted.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.Stop()
	s.mu.Lock()
	for name, t := range s.tasks {
		t.active.Store(false)
		delete(s.tasks, name)
	}
	s.mu.Unlock()
}

// IsRunning returns whether the scheduler loop is running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// loop is the main scheduler event loop
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.running.Store(false)
	if debugLog != nil {
		debugLog("[Scheduler] Loop started")
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if debugLog != nil {
				debugLog("[Scheduler] Loop ended")
			}
			return
		case <-s.wake:
		case now := <-timer.C:
			s.RunDue(now)
		}
		timer.Reset(s.untilNext(time.Now()))
	}
}

// Name returns the task's name
func (t *Task) Name() string { return t.name }

// Interval returns the task's period
func (t *Task) Interval() time.Duration { return t.interval }

// Runs returns how many times the task has completed
func (t *Task) Runs() uint64 { return t.runs.Load() }

// Active reports whether the task is scheduled
func (t *Task) Active() bool { return t.active.Load() }

// SetErrorHandler sets a custom error handler for this task
func (t *Task) SetErrorHandler(handler ErrorHandler) {
	t.onError = handler
}
