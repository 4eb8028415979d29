package amqp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gastos/internal/events"
)

type Publisher interface {
	PublishChange(ctx context.Context, e events.Event) error
}

// Relay forwards bus events to a Publisher. Forwarding happens off the
// publishing goroutine so a slow broker never delays local subscribers.
type Relay struct {
	pub     Publisher
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewRelay(pub Publisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{pub: pub, timeout: publishTimeout, logger: logger.With("component", "amqp_relay")}
}

// Attach subscribes the relay to every change kind. The returned function
// detaches it.
func (r *Relay) Attach(bus *events.Bus) (detach func()) {
	unsubs := []func(){
		bus.Subscribe(events.CategoriesChanged, r.forward),
		bus.Subscribe(events.ExpensesChanged, r.forward),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (r *Relay) forward(ctx context.Context, e events.Event) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.pub.PublishChange(ctx, e); err != nil {
			r.logger.WarnContext(ctx, "Failed to relay change", "event", e.String(), "error", err)
		}
	}()
}

// Wait blocks until every in-flight forward has finished.
func (r *Relay) Wait() {
	r.wg.Wait()
}
