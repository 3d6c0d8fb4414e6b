package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusRunning, false},
		{JobStatusSucceeded, true},
		{JobStatusFailed, true},
		{JobStatus(""), false},
		{JobStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, IsTerminal(tt.status))
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   JobStatus
		wantOK bool
	}{
		{"PENDING", JobStatusPending, true},
		{"pending", JobStatusPending, true},
		{"STARTED", JobStatusRunning, true},
		{"Started", JobStatusRunning, true},
		{"RETRY", JobStatusRunning, true},
		{"running", JobStatusRunning, true},
		{"SUCCESS", JobStatusSucceeded, true},
		{"succeeded", JobStatusSucceeded, true},
		{"completed", JobStatusSucceeded, true},
		{"FAILURE", JobStatusFailed, true},
		{"Failed", JobStatusFailed, true},
		{"REVOKED", JobStatusFailed, true},
		{"  success  ", JobStatusSucceeded, true},
		{"", JobStatusPending, false},
		{"WEIRD", JobStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseJobStatus(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, OutcomeSucceeded, OutcomeFor(JobStatusSucceeded))
	assert.Equal(t, OutcomeJobFailed, OutcomeFor(JobStatusFailed))
	assert.Equal(t, OutcomeNone, OutcomeFor(JobStatusRunning))
	assert.Equal(t, OutcomeNone, OutcomeFor(JobStatusPending))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))

	te := &TransportError{Op: "GET /pdf-status/abc/", Err: errors.New("connection refused")}
	assert.Equal(t, "connection refused", UserMessage(te))
	assert.True(t, IsTransportError(&SubmissionError{Stage: StageRender, Err: te}))

	ve := &ValidationError{Fields: []FieldError{{Field: "Items", Message: "must contain at least one item"}}}
	assert.Equal(t, "invalid invoice: Items must contain at least one item", UserMessage(ve))

	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
