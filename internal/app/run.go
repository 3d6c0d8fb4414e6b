package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

// RunOptions controls what happens after a job has been submitted
type RunOptions struct {
	Wait     bool // track the job to a terminal status
	Download bool // retrieve the PDF on success (requires Wait)
}

// Result describes one document's trip through submit, track and retrieve
type Result struct {
	Source     string
	Submission *models.Submission
	Final      models.Update
	Artifact   *models.Artifact
	Err        error
	Notified   bool // Err has already been shown to the user as a notice
}

// Document is an invoice together with where it came from
type Document struct {
	Source  string
	Invoice *models.Invoice
}

// Run submits one invoice and, per opts, follows it to completion.
// Every failure is reported to the notifier once and returned in Result.Err.
func (a *App) Run(ctx context.Context, invoice *models.Invoice, opts RunOptions) *Result {
	res := &Result{}

	tr := a.NewTracker()
	defer tr.Close()

	sub, err := a.NewOrchestrator(tr).Submit(ctx, invoice)
	if err != nil {
		res.Err = err
		// The orchestrator notifies exactly the failures it wraps in SubmissionError
		var se *models.SubmissionError
		res.Notified = errors.As(err, &se)
		return res
	}
	res.Submission = sub

	if !opts.Wait {
		return res
	}

	a.follow(ctx, tr, sub.ArtifactID, opts.Download, res)
	return res
}

// Follow tracks an existing job and, when artifactID is set and download is
// requested, retrieves its PDF on success.
func (a *App) Follow(ctx context.Context, jobID models.JobID, artifactID models.ArtifactID, download bool) *Result {
	res := &Result{Submission: &models.Submission{JobID: jobID, ArtifactID: artifactID}}

	tr := a.NewTracker()
	defer tr.Close()

	tr.Track(ctx, jobID)
	a.follow(ctx, tr, artifactID, download && artifactID != 0, res)
	return res
}

func (a *App) follow(ctx context.Context, tr interfaces.JobTracker, artifactID models.ArtifactID, download bool, res *Result) {
	final, err := tr.Wait(ctx)
	if err != nil {
		res.Err = fmt.Errorf("stopped waiting for job %s: %w", res.Submission.JobID, err)
		return
	}
	res.Final = final

	switch final.Outcome {
	case models.OutcomeSucceeded:
		if !download {
			a.Notifier.Notify(interfaces.Notice{
				Level:   interfaces.NoticeSuccess,
				Message: fmt.Sprintf("PDF ready: %s", a.Retriever.URL(artifactID)),
			})
			return
		}
		artifact, err := a.Retriever.RetrieveUpdate(ctx, artifactID, final)
		if err != nil {
			res.Err = err
			a.notifyError(res, models.UserMessage(err))
			return
		}
		res.Artifact = artifact
		a.Notifier.Notify(interfaces.Notice{
			Level:   interfaces.NoticeSuccess,
			Message: fmt.Sprintf("PDF saved to %s", artifact.Path),
		})

	case models.OutcomeJobFailed:
		res.Err = fmt.Errorf("job %s: %w", final.JobID, models.ErrJobFailed)
		a.notifyError(res, models.ErrJobFailed.Error())

	case models.OutcomeTransportFailed:
		res.Err = fmt.Errorf("status of job %s could not be determined: %w", final.JobID, final.Err)
		a.notifyError(res, "Could not check PDF status: "+models.UserMessage(final.Err))
	}
}

func (a *App) notifyError(res *Result, message string) {
	a.Notifier.Notify(interfaces.Notice{Level: interfaces.NoticeError, Message: message, Err: res.Err})
	res.Notified = true
}

// SubmitBatch runs every document concurrently, at most Batch.Concurrency at a
// time, each with its own tracker. A failing document does not cancel the
// others; the first error is returned alongside all results.
func (a *App) SubmitBatch(ctx context.Context, docs []Document, opts RunOptions) ([]*Result, error) {
	results := make([]*Result, len(docs))

	limit := a.Config.Batch.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, doc := range docs {
		g.Go(func() error {
			res := a.Run(ctx, doc.Invoice, opts)
			res.Source = doc.Source
			results[i] = res
			if res.Err != nil {
				return fmt.Errorf("%s: %w", doc.Source, res.Err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
