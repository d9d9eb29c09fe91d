package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/member-query/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// Subject overrides the run event subject (e.g. from RUN_EVENT_SUBJECT).
	Subject string
}

// CommsPublisher publishes run events to COMMS subjects.
type CommsPublisher struct {
	nc      *comms.Conn
	subject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	subject := commsutil.SubjectRunCompleted
	if opts != nil && opts.Subject != "" {
		subject = opts.Subject
	}
	return &CommsPublisher{nc: nc, subject: subject}
}

// Subject returns the base run event subject.
func (p *CommsPublisher) Subject() string { return p.subject }

// PublishRunCompleted publishes event to the per-outcome subject and to the
// base subject.
func (p *CommsPublisher) PublishRunCompleted(_ context.Context, event *RunCompletedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	outcomeSubject := commsutil.BuildOutcomeSubject(p.subject, event.Outcome)
	if err := p.nc.Publish(outcomeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, outcomeSubject, err))
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.subject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published run event %s outcome=%s", commsPublisherLogPrefix, event.RunID, event.Outcome))
	return nil
}
