// Package telemetry records engine audit events for cheat forensics.
package telemetry

import (
	"context"
	"time"

	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
)

// Emitter records engine audit events.
type Emitter struct {
	store storage.EngineEventStore
	clock func() time.Time
}

// NewEmitter creates a new event emitter.
func NewEmitter(store storage.EngineEventStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records an audit event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, event storage.EngineEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		if e.clock == nil {
			event.CreatedAt = time.Now().UTC()
		} else {
			event.CreatedAt = e.clock().UTC()
		}
	}
	return e.store.AppendEngineEvent(ctx, event)
}
