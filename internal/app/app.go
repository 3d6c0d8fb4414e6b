package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/common"
	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
	"github.com/ternarybob/invoicer/internal/services/artifacts"
	"github.com/ternarybob/invoicer/internal/services/events"
	"github.com/ternarybob/invoicer/internal/services/invoiceapi"
	"github.com/ternarybob/invoicer/internal/services/notify"
	"github.com/ternarybob/invoicer/internal/services/preview"
	"github.com/ternarybob/invoicer/internal/services/submission"
	"github.com/ternarybob/invoicer/internal/services/tracker"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Client    *invoiceapi.Client
	Events    *events.Service
	Notifier  interfaces.Notifier
	Retriever *artifacts.Retriever
	Preview   *preview.Service
}

// New wires the application from configuration. notifier may be nil, in which
// case notices go to the logger.
func New(cfg *common.Config, logger arbor.ILogger, notifier interfaces.Notifier) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Notifier: notifier,
		Events:   events.NewService(logger),
	}

	if err := a.Events.Subscribe(interfaces.EventJobStatus, newProgressReporter(notifier).handle); err != nil {
		return nil, fmt.Errorf("failed to subscribe progress reporter: %w", err)
	}

	a.Client = invoiceapi.NewClientFromConfig(cfg.API, logger)
	a.Retriever = artifacts.NewRetriever(a.Client, cfg.Artifacts, logger, artifacts.WithEvents(a.Events))
	a.Preview = preview.NewService(logger)

	logger.Debug().
		Str("base_url", cfg.API.BaseURL).
		Str("poll_interval", cfg.Tracker.PollInterval).
		Str("output_dir", cfg.Artifacts.OutputDir).
		Msg("Application initialized")

	return a, nil
}

// NewTracker creates a tracker whose updates are forwarded to the event bus
// as EventJobStatus, followed by EventJobFinished for the terminal update.
// Each caller owns its tracker and must Close it.
func (a *App) NewTracker() *tracker.Tracker {
	tr := tracker.NewFromConfig(a.Client, a.Config.Tracker, a.Logger)
	tr.OnUpdate(func(u models.Update) {
		a.publish(interfaces.Event{Type: interfaces.EventJobStatus, Payload: u})
		if u.Terminal {
			a.publish(interfaces.Event{Type: interfaces.EventJobFinished, Payload: u})
		}
	})
	return tr
}

func (a *App) publish(event interfaces.Event) {
	if err := a.Events.Publish(context.Background(), event); err != nil {
		a.Logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Event subscribers reported errors")
	}
}

// NewOrchestrator creates a submission orchestrator bound to tr.
func (a *App) NewOrchestrator(tr interfaces.JobTracker) *submission.Orchestrator {
	return submission.NewOrchestrator(a.Client, tr, a.Notifier, a.Logger, submission.WithEvents(a.Events))
}

// Close releases application resources
func (a *App) Close() error {
	return a.Events.Close()
}
