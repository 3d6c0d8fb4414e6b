package interfaces

import (
	"context"
	"io"

	"github.com/ternarybob/invoicer/internal/models"
)

// JobStatusClient performs a single status query for a render job
type JobStatusClient interface {
	GetJobStatus(ctx context.Context, id models.JobID) (models.JobStatus, error)
}

// SubmissionClient creates source records and starts render jobs for them
type SubmissionClient interface {
	// CreateInvoice stores the document and returns it with the server-assigned id
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)

	// StartRender queues a PDF render for the source record and returns the job id
	StartRender(ctx context.Context, id models.ArtifactID) (models.JobID, error)
}

// ArtifactClient fetches finished PDFs
type ArtifactClient interface {
	DownloadPDF(ctx context.Context, id models.ArtifactID, w io.Writer) (int64, error)
	DownloadURL(id models.ArtifactID) string
}

// InvoiceAPI is the full remote surface used by the CLI
type InvoiceAPI interface {
	JobStatusClient
	SubmissionClient
	ArtifactClient

	ListInvoices(ctx context.Context) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id models.ArtifactID) (*models.Invoice, error)
	Health(ctx context.Context) (string, error)
	DBStatus(ctx context.Context) (string, error)
}
