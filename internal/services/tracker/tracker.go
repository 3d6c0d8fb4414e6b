// Package tracker observes asynchronous render jobs by polling their status.
//
// A Tracker holds at most one session. A session is bound to one job id and
// runs a single goroutine that sleeps for the poll interval, issues one status
// query, publishes the result and re-arms only after the query completed.
// Every session carries the generation it was started under; any result
// produced under an older generation is dropped.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/common"
	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

// State is the tracker's lifecycle state
type State string

const (
	StateIdle     State = "idle"
	StatePolling  State = "polling"
	StateTerminal State = "terminal"
)

var (
	// ErrNotTracking is returned by Wait when no session is bound.
	ErrNotTracking = errors.New("tracker: no job is being tracked")

	// ErrSessionEnded is returned by Wait when the session was torn down
	// before it reached a terminal status.
	ErrSessionEnded = errors.New("tracker: session ended before a terminal status")
)

// Snapshot is a point-in-time view of the tracker
type Snapshot struct {
	JobID      models.JobID
	State      State
	Status     models.JobStatus
	HasStatus  bool
	Generation uint64
}

type session struct {
	id       string
	jobID    models.JobID
	gen      uint64
	cancel   context.CancelFunc
	seq      int
	final    models.Update
	done     chan struct{}
	doneOnce sync.Once
}

func (s *session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Tracker polls one job at a time.
type Tracker struct {
	client       interfaces.JobStatusClient
	logger       arbor.ILogger
	interval     time.Duration
	queryTimeout time.Duration

	mu        sync.Mutex
	state     State
	sess      *session
	gen       uint64
	status    models.JobStatus
	hasStatus bool
	observers []func(models.Update)
	closed    bool

	// emitMu serializes publication so observers see one session's
	// updates in order and never interleaved with another session's.
	emitMu sync.Mutex
}

var _ interfaces.JobTracker = (*Tracker)(nil)

// Option configures a Tracker
type Option func(*Tracker)

// WithInterval sets the delay between the end of one query and the start of the next.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithQueryTimeout bounds each status query. A timeout counts as a transport failure.
func WithQueryTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.queryTimeout = d
		}
	}
}

// New creates an idle tracker.
func New(client interfaces.JobStatusClient, logger arbor.ILogger, opts ...Option) *Tracker {
	t := &Tracker{
		client:       client,
		logger:       logger,
		interval:     common.DefaultPollInterval,
		queryTimeout: common.DefaultQueryTimeout,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromConfig creates a tracker using the [tracker] config section.
func NewFromConfig(client interfaces.JobStatusClient, cfg common.TrackerConfig, logger arbor.ILogger) *Tracker {
	return New(client, logger,
		WithInterval(cfg.Interval()),
		WithQueryTimeout(cfg.QueryTimeoutDuration()),
	)
}

// OnUpdate registers an observer. Observers run on the polling goroutine,
// in registration order, outside the tracker's state lock; they may call
// Track or Stop but must not call Wait.
func (t *Tracker) OnUpdate(fn func(models.Update)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Track binds the tracker to id. An empty id tears down the current session.
// Tracking the id that is already bound (polling or terminal) is a no-op.
// The session ends early if ctx is cancelled.
func (t *Tracker) Track(ctx context.Context, id models.JobID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		t.logger.Warn().Str("job_id", string(id)).Msg("Track called on closed tracker")
		return
	}

	if id == "" {
		t.teardownLocked("unbound")
		return
	}

	if t.sess != nil && t.sess.jobID == id {
		t.logger.Debug().Str("job_id", string(id)).Str("state", string(t.state)).Msg("Job already tracked")
		return
	}

	t.teardownLocked("rebound")

	t.gen++
	sctx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:     common.NewSessionID(),
		jobID:  id,
		gen:    t.gen,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	t.sess = sess
	t.state = StatePolling
	t.status = ""
	t.hasStatus = false

	t.logger.Info().
		Str("job_id", string(id)).
		Str("session_id", sess.id).
		Dur("interval", t.interval).
		Msg("Tracking job")

	common.SafeGo(t.logger, "tracker.poll", func() {
		t.poll(sctx, sess)
	}, func(r interface{}) {
		t.abort(sess, fmt.Errorf("status polling panicked: %v", r))
	})
}

// Stop tears down the current session without waiting for an in-flight query.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.teardownLocked("stopped")
}

// Close stops tracking permanently.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.teardownLocked("closed")
	t.closed = true
}

// Status returns the most recently published status of the current session.
func (t *Tracker) Status() (models.JobStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.hasStatus
}

// Snapshot returns the tracker's current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		State:      t.state,
		Status:     t.status,
		HasStatus:  t.hasStatus,
		Generation: t.gen,
	}
	if t.sess != nil {
		snap.JobID = t.sess.jobID
	}
	return snap
}

// Wait blocks until the current session publishes its terminal update and
// all observers have run, or the session is torn down, or ctx is done.
func (t *Tracker) Wait(ctx context.Context) (models.Update, error) {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()

	if sess == nil {
		return models.Update{}, ErrNotTracking
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		return models.Update{}, ctx.Err()
	}

	t.mu.Lock()
	final := sess.final
	t.mu.Unlock()

	if !final.Terminal {
		return models.Update{JobID: sess.jobID}, ErrSessionEnded
	}
	return final, nil
}

// teardownLocked invalidates the current session. Caller holds t.mu.
func (t *Tracker) teardownLocked(reason string) {
	t.gen++

	sess := t.sess
	if sess == nil {
		return
	}

	sess.cancel()
	sess.closeDone()

	t.sess = nil
	t.state = StateIdle
	t.status = ""
	t.hasStatus = false

	t.logger.Debug().
		Str("job_id", string(sess.jobID)).
		Str("session_id", sess.id).
		Str("reason", reason).
		Msg("Tracking session torn down")
}

// poll is the session loop. It returns when the session is terminal or stale.
func (t *Tracker) poll(ctx context.Context, sess *session) {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.abandon(sess)
			return
		case <-timer.C:
		}

		if !t.isCurrent(sess) {
			return
		}

		qctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
		status, err := t.client.GetJobStatus(qctx, sess.jobID)
		cancel()

		// Torn down or caller gone while the query was in flight
		if ctx.Err() != nil {
			t.abandon(sess)
			return
		}

		terminal, applied := t.publish(sess, status, err)
		if !applied || terminal {
			return
		}

		timer.Reset(t.interval)
	}
}

func (t *Tracker) isCurrent(sess *session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sess.gen == t.gen && t.state == StatePolling
}

// publish applies one query result to sess and notifies observers.
// applied is false when the session went stale while the query was in flight.
func (t *Tracker) publish(sess *session, status models.JobStatus, queryErr error) (terminal, applied bool) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	if sess.gen != t.gen || t.state != StatePolling {
		t.mu.Unlock()
		t.logger.Debug().
			Str("job_id", string(sess.jobID)).
			Str("session_id", sess.id).
			Msg("Discarding status for stale session")
		return false, false
	}

	sess.seq++
	u := models.Update{
		JobID:      sess.jobID,
		Status:     status,
		Sequence:   sess.seq,
		ObservedAt: time.Now(),
	}

	if queryErr != nil {
		u.Status = models.JobStatusFailed
		u.Terminal = true
		u.Outcome = models.OutcomeTransportFailed
		u.Err = queryErr
	} else if models.IsTerminal(status) {
		u.Terminal = true
		u.Outcome = models.OutcomeFor(status)
	}

	t.status = u.Status
	t.hasStatus = true
	if u.Terminal {
		t.state = StateTerminal
		sess.final = u
		sess.cancel()
	}
	observers := append([]func(models.Update){}, t.observers...)
	t.mu.Unlock()

	t.logUpdate(sess, u)

	for _, fn := range observers {
		fn(u)
	}

	if u.Terminal {
		sess.closeDone()
	}
	return u.Terminal, true
}

// abandon ends a session whose parent context was cancelled.
func (t *Tracker) abandon(sess *session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sess.gen == t.gen && t.state == StatePolling {
		t.teardownLocked("context cancelled")
	}
	sess.closeDone()
}

// abort ends a session whose goroutine panicked, so its timer never outlives it.
func (t *Tracker) abort(sess *session, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sess.gen == t.gen && t.state == StatePolling {
		sess.seq++
		sess.final = models.Update{
			JobID:      sess.jobID,
			Status:     models.JobStatusFailed,
			Terminal:   true,
			Outcome:    models.OutcomeTransportFailed,
			Err:        err,
			Sequence:   sess.seq,
			ObservedAt: time.Now(),
		}
		t.state = StateTerminal
		t.status = models.JobStatusFailed
		t.hasStatus = true
	}
	sess.cancel()
	sess.closeDone()
}

func (t *Tracker) logUpdate(sess *session, u models.Update) {
	switch u.Outcome {
	case models.OutcomeTransportFailed:
		t.logger.Warn().
			Str("job_id", string(u.JobID)).
			Str("session_id", sess.id).
			Err(u.Err).
			Msg("Job status could not be determined, tracking stopped")
	case models.OutcomeJobFailed:
		t.logger.Warn().
			Str("job_id", string(u.JobID)).
			Str("session_id", sess.id).
			Int("polls", u.Sequence).
			Msg("Job failed")
	case models.OutcomeSucceeded:
		t.logger.Info().
			Str("job_id", string(u.JobID)).
			Str("session_id", sess.id).
			Int("polls", u.Sequence).
			Msg("Job succeeded")
	default:
		t.logger.Debug().
			Str("job_id", string(u.JobID)).
			Str("status", string(u.Status)).
			Int("sequence", u.Sequence).
			Msg("Job status")
	}
}
