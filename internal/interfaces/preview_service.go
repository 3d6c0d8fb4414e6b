package interfaces

import "github.com/ternarybob/invoicer/internal/models"

// PreviewService renders a local draft PDF of an invoice
type PreviewService interface {
	RenderInvoice(invoice *models.Invoice) ([]byte, error)
}
