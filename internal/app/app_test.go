package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/common"
	"github.com/ternarybob/invoicer/internal/interfaces"
	"github.com/ternarybob/invoicer/internal/models"
	"github.com/ternarybob/invoicer/internal/services/notify"
	"github.com/ternarybob/invoicer/internal/services/preview"
)

// fakeAPI serves the invoice, render and download endpoints in memory.
// Each task walks through its status script, one entry per status query,
// repeating the last entry once exhausted.
type fakeAPI struct {
	t      *testing.T
	pdf    []byte
	script []string

	mu          sync.Mutex
	renderErr   string // when set, render-start answers 500 with this error
	nextID      int64
	statusCalls map[string]int
	downloads   int
}

func newFakeAPI(t *testing.T, script ...string) (*fakeAPI, *httptest.Server) {
	t.Helper()
	pdf, err := preview.NewService(arbor.NewLogger()).RenderInvoice(widgetInvoice())
	require.NoError(t, err)

	f := &fakeAPI{
		t:           t,
		pdf:         pdf,
		script:      script,
		nextID:      41,
		statusCalls: make(map[string]int),
	}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch {
	case r.Method == http.MethodPost && path == "/invoices/":
		var inv models.Invoice
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f.nextID++
		inv.ID = models.ArtifactID(f.nextID)
		writeJSON(w, http.StatusCreated, inv)

	case r.Method == http.MethodPost && path == "/generate-pdf/":
		var req struct {
			ReportID int64 `json:"report_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if f.renderErr != "" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": f.renderErr})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"task_id": fmt.Sprintf("task-%d", req.ReportID),
			"status":  "PENDING",
		})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/pdf-status/"):
		taskID := strings.Trim(strings.TrimPrefix(path, "/pdf-status/"), "/")
		n := f.statusCalls[taskID]
		f.statusCalls[taskID] = n + 1
		if n >= len(f.script) {
			n = len(f.script) - 1
		}
		writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID, "status": f.script[n]})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/download-pdf/"):
		f.downloads++
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(f.pdf)

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func widgetInvoice() *models.Invoice {
	return &models.Invoice{
		CompanyName: "OmniSoft",
		Address:     "123 Bristol Road, London",
		Customer:    models.Customer{Name: "Marie"},
		Items:       []models.LineItem{{Name: "Widget", Quantity: 2, UnitPrice: 9.99}},
	}
}

func newTestApp(t *testing.T, server *httptest.Server, notifier interfaces.Notifier) *App {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.API.BaseURL = server.URL + "/api"
	cfg.API.RateLimit = 0
	cfg.Tracker.PollInterval = "10ms"
	cfg.Tracker.QueryTimeout = "1s"
	cfg.Artifacts.OutputDir = t.TempDir()
	cfg.Batch.Concurrency = 2

	a, err := New(cfg, arbor.NewLogger(), notifier)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.API.BaseURL = "not a url"

	_, err := New(cfg, arbor.NewLogger(), nil)
	assert.Error(t, err)
}

// Full pipeline: invoice 42, job walks PENDING, STARTED, SUCCESS, PDF saved.
func TestRun_SubmitTrackRetrieve(t *testing.T) {
	api, server := newFakeAPI(t, "PENDING", "STARTED", "SUCCESS")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	var statuses []models.JobStatus
	var mu sync.Mutex
	require.NoError(t, a.Events.Subscribe(interfaces.EventJobStatus, func(ctx context.Context, e interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, e.Payload.(models.Update).Status)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := a.Run(ctx, widgetInvoice(), RunOptions{Wait: true, Download: true})
	require.NoError(t, res.Err)

	require.NotNil(t, res.Submission)
	assert.Equal(t, models.ArtifactID(42), res.Submission.ArtifactID)
	assert.Equal(t, models.JobID("task-42"), res.Submission.JobID)

	assert.Equal(t, models.JobStatusSucceeded, res.Final.Status)
	assert.True(t, res.Final.Terminal)

	require.NotNil(t, res.Artifact)
	assert.Equal(t, filepath.Join(a.Config.Artifacts.OutputDir, "report_42.pdf"), res.Artifact.Path)
	assert.Positive(t, res.Artifact.Pages)
	_, err := os.Stat(res.Artifact.Path)
	assert.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []models.JobStatus{models.JobStatusPending, models.JobStatusRunning, models.JobStatusSucceeded}, statuses)
	mu.Unlock()

	assert.Equal(t, 1, rec.Count(interfaces.NoticeSuccess))
	assert.Zero(t, rec.Count(interfaces.NoticeError))

	api.mu.Lock()
	assert.Equal(t, 3, api.statusCalls["task-42"])
	assert.Equal(t, 1, api.downloads)
	api.mu.Unlock()
}

func TestRun_JobFailed(t *testing.T) {
	api, server := newFakeAPI(t, "PENDING", "FAILURE")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := a.Run(ctx, widgetInvoice(), RunOptions{Wait: true, Download: true})

	assert.ErrorIs(t, res.Err, models.ErrJobFailed)
	assert.True(t, res.Notified)
	assert.Equal(t, models.OutcomeJobFailed, res.Final.Outcome)
	assert.Nil(t, res.Artifact)
	assert.Equal(t, 1, rec.Count(interfaces.NoticeError))

	api.mu.Lock()
	assert.Zero(t, api.downloads)
	api.mu.Unlock()
}

func TestRun_NoWaitReturnsAfterSubmission(t *testing.T) {
	_, server := newFakeAPI(t, "PENDING")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	res := a.Run(context.Background(), widgetInvoice(), RunOptions{})

	require.NoError(t, res.Err)
	require.NotNil(t, res.Submission)
	assert.Equal(t, models.JobID("task-42"), res.Submission.JobID)
	assert.Zero(t, rec.Count(interfaces.NoticeError))
	assert.Zero(t, rec.Count(interfaces.NoticeSuccess))
	assert.Empty(t, res.Final.JobID)
}

func TestRun_ValidationErrorIsNotNotified(t *testing.T) {
	_, server := newFakeAPI(t, "PENDING")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	inv := widgetInvoice()
	inv.Items = nil

	res := a.Run(context.Background(), inv, RunOptions{Wait: true})

	var ve *models.ValidationError
	assert.ErrorAs(t, res.Err, &ve)
	assert.False(t, res.Notified)
	assert.Nil(t, res.Submission)
	assert.Empty(t, rec.Notices())
}

func TestFollow_ExistingJobWithoutDownload(t *testing.T) {
	api, server := newFakeAPI(t, "STARTED", "SUCCESS")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := a.Follow(ctx, "task-7", 0, true)

	require.NoError(t, res.Err)
	assert.Equal(t, models.JobStatusSucceeded, res.Final.Status)
	assert.Nil(t, res.Artifact)
	assert.Equal(t, 1, rec.Count(interfaces.NoticeSuccess))

	api.mu.Lock()
	assert.Zero(t, api.downloads)
	api.mu.Unlock()
}

func TestFollow_ContextCancelled(t *testing.T) {
	_, server := newFakeAPI(t, "PENDING")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := a.Follow(ctx, "task-7", 0, false)

	assert.Error(t, res.Err)
	assert.False(t, res.Notified)
	assert.Zero(t, rec.Count(interfaces.NoticeError))
	assert.Zero(t, rec.Count(interfaces.NoticeSuccess))
}

func TestRun_SubmissionFailureNotifiedOnce(t *testing.T) {
	api, server := newFakeAPI(t, "PENDING")
	api.renderErr = "queue full"
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	res := a.Run(context.Background(), widgetInvoice(), RunOptions{Wait: true, Download: true})

	var se *models.SubmissionError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, models.StageRender, se.Stage)
	assert.True(t, res.Notified)
	require.Len(t, rec.Notices(), 1)
	assert.Equal(t, "queue full", rec.Notices()[0].Message)

	api.mu.Lock()
	assert.Empty(t, api.statusCalls)
	api.mu.Unlock()
}

func TestRun_ReportsProgressOncePerStatus(t *testing.T) {
	_, server := newFakeAPI(t, "PENDING", "PENDING", "STARTED", "STARTED", "SUCCESS")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := a.Run(ctx, widgetInvoice(), RunOptions{Wait: true})
	require.NoError(t, res.Err)

	var progress []string
	for _, n := range rec.Notices() {
		if n.Level == interfaces.NoticeInfo {
			progress = append(progress, n.Message)
		}
	}
	assert.Equal(t, []string{
		"Generating PDF (job task-42): pending",
		"Generating PDF (job task-42): running",
	}, progress)
	assert.Equal(t, 1, rec.Count(interfaces.NoticeSuccess))
}

func TestSubmitBatch(t *testing.T) {
	api, server := newFakeAPI(t, "PENDING", "SUCCESS")
	rec := &notify.Recorder{}
	a := newTestApp(t, server, rec)

	bad := widgetInvoice()
	bad.CompanyName = ""

	docs := []Document{
		{Source: "a.toml", Invoice: widgetInvoice()},
		{Source: "b.toml", Invoice: bad},
		{Source: "c.toml", Invoice: widgetInvoice()},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := a.SubmitBatch(ctx, docs, RunOptions{Wait: true, Download: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.toml")
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, docs[i].Source, res.Source)
	}
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)
	assert.Error(t, results[1].Err)
	require.NotNil(t, results[0].Artifact)
	require.NotNil(t, results[2].Artifact)
	assert.NotEqual(t, results[0].Artifact.Path, results[2].Artifact.Path)

	assert.Equal(t, 2, rec.Count(interfaces.NoticeSuccess))

	api.mu.Lock()
	assert.Equal(t, 2, api.downloads)
	api.mu.Unlock()
}
