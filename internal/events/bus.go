// Package events carries change notifications from the data layer to
// whoever renders it. Consumers react by refetching; events carry no diff.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	CategoriesChanged Kind = "categories-changed"
	ExpensesChanged   Kind = "expenses-changed"
)

type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
	ActionClear   Action = "clear"
)

// Event is one successful mutation. ID is zero for actions without a single
// target, such as clear or a batch import.
type Event struct {
	Kind   Kind
	Action Action
	ID     int64
	At     time.Time
}

func (e Event) String() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s/%s", e.Kind, e.Action)
	}
	return fmt.Sprintf("%s/%s#%d", e.Kind, e.Action, e.ID)
}

type Handler func(ctx context.Context, e Event)

// Bus is an in-process observer registry. The zero value is not usable; call
// NewBus.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind]map[uint64]Handler
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[Kind]map[uint64]Handler),
		logger: logger.With("component", "events"),
	}
}

// Subscribe registers h for kind and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(kind Kind, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[uint64]Handler)
	}
	b.subs[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[kind], id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber of e.Kind, synchronously.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind]))
	for _, h := range b.subs[e.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.DebugContext(ctx, "Publishing change", "event", e.String(), "subscribers", len(handlers))

	for _, h := range handlers {
		b.deliver(ctx, h, e)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "Change handler panicked", "event", e.String(), "panic", r)
		}
	}()
	h(ctx, e)
}

// Subscribers reports how many handlers are registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
