// Package invoiceapi provides a client for the invoice rendering API.
package invoiceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/invoicer/internal/common"
	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Client is an invoice API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

var _ interfaces.InvoiceAPI = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new API client rooted at baseURL (e.g. http://host/api).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: common.UserAgent(""),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig creates a client from the [api] config section.
func NewClientFromConfig(cfg common.APIConfig, logger arbor.ILogger) *Client {
	return NewClient(cfg.BaseURL,
		WithTimeout(cfg.TimeoutDuration()),
		WithRateLimit(cfg.RateLimit),
		WithUserAgent(common.UserAgent(cfg.UserAgent)),
		WithLogger(logger),
	)
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the invoice API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("invoice API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// UserMessage returns the server-provided message, or "HTTP <code>" when none was given.
func (e *APIError) UserMessage() string {
	return e.Message
}

// do performs a request and decodes a JSON response into result (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	op := method + " " + path
	if !isJSON(resp) {
		return &models.TransportError{Op: op, Err: fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &models.TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// send executes a request and returns the response when the status is 2xx.
// The caller owns the body.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.TransportError{Op: op, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := common.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("method", method).
			Str("url", c.baseURL+path).
			Str("request_id", requestID).
			Msg("Invoice API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			Endpoint:   path,
		}
		if isJSON(resp) {
			var body errorResponse
			if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
				apiErr.Message = body.Error
			}
		}
		if c.logger != nil {
			c.logger.Debug().
				Int("status", resp.StatusCode).
				Str("endpoint", path).
				Str("request_id", requestID).
				Str("message", apiErr.Message).
				Msg("Invoice API error response")
		}
		return nil, apiErr
	}

	return resp, nil
}

func isJSON(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "application/json")
}

// CreateInvoice stores the invoice and returns it with the server-assigned id.
func (c *Client) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	var created models.Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices/", invoice, &created); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("failed to create invoice: response carried no id")
	}
	return &created, nil
}

// StartRender queues a PDF render for the invoice and returns the job id.
func (c *Client) StartRender(ctx context.Context, id models.ArtifactID) (models.JobID, error) {
	var resp renderResponse
	if err := c.do(ctx, http.MethodPost, "/generate-pdf/", renderRequest{ReportID: id}, &resp); err != nil {
		return "", fmt.Errorf("failed to start render for invoice %d: %w", id, err)
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("failed to start render for invoice %d: response carried no task_id", id)
	}
	return models.JobID(resp.TaskID), nil
}

// GetJobStatus performs one status query for a render job.
func (c *Client) GetJobStatus(ctx context.Context, id models.JobID) (models.JobStatus, error) {
	path := fmt.Sprintf("/pdf-status/%s/", url.PathEscape(string(id)))

	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch status for job %s: %w", id, err)
	}

	status, ok := models.ParseJobStatus(resp.Status)
	if !ok && c.logger != nil {
		c.logger.Warn().
			Str("job_id", string(id)).
			Str("status", resp.Status).
			Msg("Unrecognized job status, treating as pending")
	}
	return status, nil
}

// GetInvoice retrieves one invoice.
func (c *Client) GetInvoice(ctx context.Context, id models.ArtifactID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/invoices/%d/", id), nil, &invoice); err != nil {
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", id, err)
	}
	return &invoice, nil
}

// ListInvoices retrieves all invoices.
func (c *Client) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/", nil, &invoices); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// Health returns the API health status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp healthResponse
	if err := c.do(ctx, http.MethodGet, "/health/", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to check health: %w", err)
	}
	return resp.Status, nil
}

// DBStatus returns the API database status string.
func (c *Client) DBStatus(ctx context.Context) (string, error) {
	var resp healthResponse
	if err := c.do(ctx, http.MethodGet, "/db-status/", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to check database status: %w", err)
	}
	return resp.Status, nil
}

// DownloadURL returns the direct download location of an invoice's PDF.
func (c *Client) DownloadURL(id models.ArtifactID) string {
	return fmt.Sprintf("%s/download-pdf/%d/", c.baseURL, id)
}

// DownloadPDF streams an invoice's PDF into w and returns the bytes written.
func (c *Client) DownloadPDF(ctx context.Context, id models.ArtifactID, w io.Writer) (int64, error) {
	path := fmt.Sprintf("/download-pdf/%d/", id)

	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to download PDF for invoice %d: %w", id, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &models.TransportError{Op: http.MethodGet + " " + path, Err: err}
	}
	return n, nil
}
