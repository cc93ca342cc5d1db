// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Versioned guards a value together with a monotonic version. Writers tag
// their update with the version of the input they derived it from; stale
// writers lose. This implements last-started-wins for concurrent producers
// whose results may complete out of order.
type Versioned[T any] struct {
	mu      sync.RWMutex
	version uint64
	value   T
}

// NewVersioned creates a guarded value at version 0.
func NewVersioned[T any](initial T) *Versioned[T] {
	return &Versioned[T]{value: initial}
}

// Get returns the current value and its version.
func (v *Versioned[T]) Get() (T, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.version
}

// Value returns the current value.
func (v *Versioned[T]) Value() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Version returns the current version.
func (v *Versioned[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// SetIfNewer stores val tagged with version if it is at least as new as the
// current one. Returns false when a newer value is already present.
func (v *Versioned[T]) SetIfNewer(version uint64, val T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if version < v.version {
		return false
	}
	v.version = version
	v.value = val
	return true
}
