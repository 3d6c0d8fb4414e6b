package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// Payload: models.Update
	EventJobStatus EventType = "job_status"
	// Payload: models.Update (terminal only, published after EventJobStatus)
	EventJobFinished EventType = "job_finished"
	// Payload: models.Submission
	EventSubmitted EventType = "submitted"
	// Payload: error
	EventSubmissionFailed EventType = "submission_failed"
	// Payload: *models.Artifact
	EventArtifactSaved EventType = "artifact_saved"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService is an in-process bus. Handlers run synchronously in
// subscription order so subscribers see events in publication order.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	Close() error
}
