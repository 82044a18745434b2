package bus

import (
	"context"

	"github.com/hswtrack/compliance-backend/internal/realtime"
)

// Bus fans pipeline progress out to whoever is listening. Publishing is best
// effort: a broken bus must never fail an import.
type Bus interface {
	Publish(ctx context.Context, event realtime.ProgressEvent) error
	StartForwarder(ctx context.Context, onEvent func(event realtime.ProgressEvent)) error
	Close() error
}

type noopBus struct{}

// NewNoopBus returns a bus that drops every event, for deployments without
// redis and for tests.
func NewNoopBus() Bus { return &noopBus{} }

func (noopBus) Publish(context.Context, realtime.ProgressEvent) error { return nil }
func (noopBus) StartForwarder(context.Context, func(realtime.ProgressEvent)) error {
	return nil
}
func (noopBus) Close() error { return nil }
