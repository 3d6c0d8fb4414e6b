package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

// progressReporter turns non-terminal job status updates into info notices,
// one per status change. Terminal outcomes are reported by follow.
type progressReporter struct {
	notifier interfaces.Notifier

	mu   sync.Mutex
	last map[models.JobID]models.JobStatus
}

func newProgressReporter(notifier interfaces.Notifier) *progressReporter {
	return &progressReporter{
		notifier: notifier,
		last:     make(map[models.JobID]models.JobStatus),
	}
}

func (p *progressReporter) handle(ctx context.Context, event interfaces.Event) error {
	u, ok := event.Payload.(models.Update)
	if !ok {
		return fmt.Errorf("unexpected %s payload %T", event.Type, event.Payload)
	}

	p.mu.Lock()
	if u.Terminal {
		delete(p.last, u.JobID)
		p.mu.Unlock()
		return nil
	}
	changed := p.last[u.JobID] != u.Status
	p.last[u.JobID] = u.Status
	p.mu.Unlock()

	if changed {
		p.notifier.Notify(interfaces.Notice{
			Level:   interfaces.NoticeInfo,
			Message: fmt.Sprintf("Generating PDF (job %s): %s", u.JobID, u.Status),
		})
	}
	return nil
}
