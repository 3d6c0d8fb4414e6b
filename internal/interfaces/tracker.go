package interfaces

import (
	"context"

	"github.com/ternarybob/invoicer/internal/models"
)

// JobTracker observes one render job at a time.
// Track with an empty id tears down the current session.
type JobTracker interface {
	Track(ctx context.Context, id models.JobID)
	Stop()
	Status() (models.JobStatus, bool)
	OnUpdate(fn func(models.Update))
	Wait(ctx context.Context) (models.Update, error)
	Close()
}
