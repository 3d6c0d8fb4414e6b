// Package artifacts downloads finished PDFs once their render job succeeded.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/common"
	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

// Retriever fetches the PDF for an artifact id into the output directory
type Retriever struct {
	client    interfaces.ArtifactClient
	outputDir string
	verify    bool
	events    interfaces.EventService
	logger    arbor.ILogger
}

// Option configures a Retriever
type Option func(*Retriever)

// WithEvents publishes EventArtifactSaved after each successful download.
func WithEvents(bus interfaces.EventService) Option {
	return func(r *Retriever) {
		r.events = bus
	}
}

// WithOutputDir overrides the configured output directory.
func WithOutputDir(dir string) Option {
	return func(r *Retriever) {
		if dir != "" {
			r.outputDir = dir
		}
	}
}

// NewRetriever creates a retriever from the [artifacts] config section
func NewRetriever(client interfaces.ArtifactClient, cfg common.ArtifactsConfig, logger arbor.ILogger, opts ...Option) *Retriever {
	r := &Retriever{
		client:    client,
		outputDir: cfg.OutputDir,
		verify:    cfg.Verify,
		logger:    logger,
	}
	if r.outputDir == "" {
		r.outputDir = "."
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URL returns the direct download location without fetching anything.
func (r *Retriever) URL(id models.ArtifactID) string {
	return r.client.DownloadURL(id)
}

// RetrieveUpdate downloads the artifact when u reports success.
func (r *Retriever) RetrieveUpdate(ctx context.Context, id models.ArtifactID, u models.Update) (*models.Artifact, error) {
	return r.Retrieve(ctx, id, u.Status)
}

// Retrieve downloads the artifact. It refuses with ErrArtifactNotReady unless
// status is succeeded. The file is written to <output_dir>/report_<id>.pdf
// only after the download (and verification, when enabled) completed.
func (r *Retriever) Retrieve(ctx context.Context, id models.ArtifactID, status models.JobStatus) (*models.Artifact, error) {
	if status != models.JobStatusSucceeded {
		return nil, fmt.Errorf("invoice %d (status %s): %w", id, status, models.ErrArtifactNotReady)
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.outputDir, "report_*.pdf.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	n, err := r.client.DownloadPDF(ctx, id, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write PDF: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}

	artifact := &models.Artifact{
		ID:    id,
		Path:  filepath.Join(r.outputDir, models.ArtifactFileName(id)),
		Bytes: n,
	}

	if r.verify {
		pages, err := VerifyPDF(tmpPath)
		if err != nil {
			return nil, fmt.Errorf("downloaded PDF for invoice %d is invalid: %w", id, err)
		}
		artifact.Pages = pages
	}

	if err := os.Rename(tmpPath, artifact.Path); err != nil {
		return nil, fmt.Errorf("failed to save PDF: %w", err)
	}

	r.logger.Info().
		Int64("invoice_id", int64(id)).
		Str("path", artifact.Path).
		Int64("bytes", artifact.Bytes).
		Int("pages", artifact.Pages).
		Msg("PDF saved")

	if r.events != nil {
		if err := r.events.Publish(ctx, interfaces.Event{Type: interfaces.EventArtifactSaved, Payload: artifact}); err != nil {
			r.logger.Warn().Err(err).Msg("Artifact subscribers reported errors")
		}
	}

	return artifact, nil
}

// VerifyPDF parses the file with pdfcpu and returns its page count.
func VerifyPDF(path string) (int, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	if pdfCtx.Encrypt != nil {
		return 0, fmt.Errorf("PDF is encrypted")
	}
	if pdfCtx.PageCount < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pdfCtx.PageCount, nil
}
