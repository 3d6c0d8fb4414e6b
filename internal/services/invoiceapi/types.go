package invoiceapi

import "github.com/ternarybob/invoicer/internal/models"

// renderRequest is the body of POST /generate-pdf/
type renderRequest struct {
	ReportID models.ArtifactID `json:"report_id"`
}

// renderResponse is returned by POST /generate-pdf/
type renderResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// statusResponse is returned by GET /pdf-status/{task_id}/
type statusResponse struct {
	TaskID string `json:"task_id,omitempty"`
	Status string `json:"status"`
}

// healthResponse is returned by GET /health/ and GET /db-status/
type healthResponse struct {
	Status string `json:"status"`
}

// errorResponse is the body of a non-2xx JSON response
type errorResponse struct {
	Error string `json:"error"`
}
