package events

import "context"

// EventPublisher publishes run events.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (no COMMS configured).
type NoOpPublisher struct{}

// PublishRunCompleted is a no-op.
func (p *NoOpPublisher) PublishRunCompleted(_ context.Context, _ *RunCompletedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *RunCompletedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *RunCompletedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishRunCompleted calls the callback.
func (p *CallbackPublisher) PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error {
	return p.callback(ctx, event)
}
