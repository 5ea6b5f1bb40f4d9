package scheduler

import "sync"

// FrameToken coalesces requests into at most one pending value. Each
// Request replaces the previous one; Flush hands the latest to fn once.
type FrameToken[T any] struct {
	mu      sync.Mutex
	pending *T
}

// Request stores v as the pending value
func (f *FrameToken[T]) Request(v T) {
	f.mu.Lock()
	f.pending = &v
	f.mu.Unlock()
}

// Pending reports whether a value is waiting
func (f *FrameToken[T]) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending != nil
}

// Flush runs fn with the pending value, if any, and clears it
func (f *FrameToken[T]) Flush(fn func(T)) bool {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()
	if p == nil {
		return false
	}
	fn(*p)
	return true
}

// Cancel drops the pending value
func (f *FrameToken[T]) Cancel() {
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
}
