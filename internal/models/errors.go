// -----------------------------------------------------------------------
// Error taxonomy
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArtifactNotReady is returned when retrieval is attempted before the job succeeded.
var ErrArtifactNotReady = errors.New("artifact not ready: job has not succeeded")

// ErrJobFailed is returned when the server reports the render job as failed.
var ErrJobFailed = errors.New("PDF generation failed")

// FieldError describes one invalid field of a source document
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is a malformed or incomplete source document.
// It is raised before any remote call.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid invoice: " + strings.Join(parts, "; ")
}

// SubmissionStage names the remote call a SubmissionError came from.
type SubmissionStage string

const (
	StageCreate SubmissionStage = "create"
	StageRender SubmissionStage = "render"
)

// SubmissionError is a failed create or render-start call.
type SubmissionError struct {
	Stage SubmissionStage
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TransportError is a request that never produced an HTTP response
// (connection refused, timeout, undecodable body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// userMessager is implemented by errors carrying a message fit for display.
type userMessager interface {
	UserMessage() string
}

// UserMessage returns the single message shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Err.Error()
	}

	return err.Error()
}
