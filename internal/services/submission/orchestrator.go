// Package submission sends invoices for rendering and hands the resulting
// job to a tracker.
package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

// Orchestrator runs validate -> create -> start render -> track.
type Orchestrator struct {
	client   interfaces.SubmissionClient
	tracker  interfaces.JobTracker
	notifier interfaces.Notifier
	events   interfaces.EventService
	logger   arbor.ILogger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithEvents publishes EventSubmitted / EventSubmissionFailed on bus.
func WithEvents(bus interfaces.EventService) Option {
	return func(o *Orchestrator) {
		o.events = bus
	}
}

// NewOrchestrator creates an orchestrator. tracker may be nil when the caller
// tracks the returned job itself.
func NewOrchestrator(client interfaces.SubmissionClient, tracker interfaces.JobTracker, notifier interfaces.Notifier, logger arbor.ILogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit validates the invoice, creates it, starts its render and begins
// tracking the render job.
//
// A *models.ValidationError is returned before any remote call and is not
// sent to the notifier. A failed remote call is returned as
// *models.SubmissionError after exactly one error notice; no tracking starts.
func (o *Orchestrator) Submit(ctx context.Context, invoice *models.Invoice) (*models.Submission, error) {
	if invoice == nil {
		return nil, &models.ValidationError{Fields: []models.FieldError{{Field: "invoice", Message: "is required"}}}
	}
	if err := invoice.Validate(); err != nil {
		o.logger.Debug().Err(err).Msg("Invoice rejected before submission")
		return nil, err
	}

	created, err := o.client.CreateInvoice(ctx, invoice)
	if err != nil {
		return nil, o.fail(ctx, models.StageCreate, err)
	}

	jobID, err := o.client.StartRender(ctx, created.ID)
	if err != nil {
		return nil, o.fail(ctx, models.StageRender, err)
	}

	sub := &models.Submission{ArtifactID: created.ID, JobID: jobID}

	o.logger.Info().
		Int64("invoice_id", int64(sub.ArtifactID)).
		Str("job_id", string(sub.JobID)).
		Int("items", len(invoice.Items)).
		Msg("Invoice submitted for rendering")

	if o.tracker != nil {
		o.tracker.Track(ctx, sub.JobID)
	}

	o.publish(ctx, interfaces.Event{Type: interfaces.EventSubmitted, Payload: *sub})

	return sub, nil
}

func (o *Orchestrator) fail(ctx context.Context, stage models.SubmissionStage, err error) error {
	// A cancelled caller is not a failure worth surfacing
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("submission cancelled at %s: %w", stage, err)
	}

	subErr := &models.SubmissionError{Stage: stage, Err: err}

	if o.notifier == nil {
		o.logger.Error().
			Str("stage", string(stage)).
			Err(err).
			Msg("Invoice submission failed")
	} else {
		// The notice is the report; LogNotifier records it when logging to file
		o.logger.Debug().
			Str("stage", string(stage)).
			Err(err).
			Msg("Invoice submission failed")
		o.notifier.Notify(interfaces.Notice{
			Level:   interfaces.NoticeError,
			Message: models.UserMessage(err),
			Err:     subErr,
		})
	}

	o.publish(ctx, interfaces.Event{Type: interfaces.EventSubmissionFailed, Payload: error(subErr)})

	return subErr
}

func (o *Orchestrator) publish(ctx context.Context, event interfaces.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Event subscribers reported errors")
	}
}
