package services

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// View is a caller-held, concurrency-safe copy of a list the façade can patch
// optimistically. It is a cache: on a change notification the owner should
// Replace it with fresh data.
type View[T any] struct {
	mu    sync.RWMutex
	items []T
	key   func(T) int64
}

func NewView[T any](key func(T) int64, items []T) *View[T] {
	return &View[T]{items: slices.Clone(items), key: key}
}

// Items returns a copy of the current list.
func (v *View[T]) Items() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.items)
}

func (v *View[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

func (v *View[T]) Get(id int64) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := v.indexLocked(id); i >= 0 {
		return v.items[i], true
	}
	var zero T
	return zero, false
}

func (v *View[T]) Replace(items []T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = slices.Clone(items)
}

func (v *View[T]) indexLocked(id int64) int {
	return slices.IndexFunc(v.items, func(item T) bool { return v.key(item) == id })
}

// prepend inserts item at the front and returns a revert that removes it.
func (v *View[T]) prepend(item T) func() {
	v.mu.Lock()
	v.items = append([]T{item}, v.items...)
	v.mu.Unlock()
	id := v.key(item)
	return func() { v.remove(id) }
}

// swap replaces the record with id, returning a revert that puts the old
// record back. It is a no-op when id is not in the view.
func (v *View[T]) swap(id int64, update func(T) T) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.indexLocked(id)
	if i < 0 {
		return func() {}
	}
	old := v.items[i]
	v.items[i] = update(old)
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if j := v.indexLocked(id); j >= 0 {
			v.items[j] = old
		}
	}
}

// take removes the record with id, returning a revert that reinserts it at
// its old position.
func (v *View[T]) take(id int64) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.indexLocked(id)
	if i < 0 {
		return func() {}
	}
	old := v.items[i]
	v.items = slices.Delete(v.items, i, i+1)
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		pos := min(i, len(v.items))
		v.items = slices.Insert(v.items, pos, old)
	}
}

// empty clears the view, returning a revert that restores the snapshot.
func (v *View[T]) empty() func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	snapshot := v.items
	v.items = nil
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.items = snapshot
	}
}

func (v *View[T]) remove(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.indexLocked(id); i >= 0 {
		v.items = slices.Delete(v.items, i, i+1)
	}
}

type PendingState int32

const (
	StatePending PendingState = iota
	StateCommitted
	StateRolledBack
)

func (s PendingState) String() string {
	switch s {
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	default:
		return "pending"
	}
}

var ErrSettled = errors.New("pending write already settled")

// Pending is one in-flight optimistic write over a View:
//
//	pending -> committed   (Commit, the store accepted the write)
//	pending -> rolled-back (Rollback, the local patch is reverted)
//
// A nil view makes every step a no-op, so callers without a cached list can
// share the same code path.
type Pending[T any] struct {
	view   *View[T]
	revert func()
	state  atomic.Int32
}

// Begin applies the local patch immediately. apply returns the function that
// undoes it.
func Begin[T any](view *View[T], apply func(v *View[T]) (revert func())) *Pending[T] {
	p := &Pending[T]{view: view, revert: func() {}}
	if view != nil && apply != nil {
		if r := apply(view); r != nil {
			p.revert = r
		}
	}
	return p
}

// Commit settles the write. reconcile, if given, brings the view in line with
// what the store returned (e.g. the real id for a placeholder).
func (p *Pending[T]) Commit(reconcile func(v *View[T])) error {
	if !p.state.CompareAndSwap(int32(StatePending), int32(StateCommitted)) {
		return ErrSettled
	}
	if p.view != nil && reconcile != nil {
		reconcile(p.view)
	}
	return nil
}

func (p *Pending[T]) Rollback() error {
	if !p.state.CompareAndSwap(int32(StatePending), int32(StateRolledBack)) {
		return ErrSettled
	}
	p.revert()
	return nil
}

func (p *Pending[T]) State() PendingState {
	return PendingState(p.state.Load())
}

var placeholderSeq atomic.Int64

// nextPlaceholderID returns a fresh negative id for a provisional record.
func nextPlaceholderID() int64 {
	return -placeholderSeq.Add(1)
}
