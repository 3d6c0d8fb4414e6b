package models

import (
	"strings"
	"time"
)

// JobID identifies a server-owned render job. It is opaque to the client.
type JobID string

// ArtifactID identifies the source record a job renders into. The finished PDF
// is retrieved by this id, never by JobID.
type ArtifactID int64

// JobStatus is the client-side view of a render job's state
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// remoteStatuses maps the states reported by the render worker onto JobStatus.
// Keys are upper case.
var remoteStatuses = map[string]JobStatus{
	"PENDING":   JobStatusPending,
	"QUEUED":    JobStatusPending,
	"RECEIVED":  JobStatusPending,
	"STARTED":   JobStatusRunning,
	"RUNNING":   JobStatusRunning,
	"RETRY":     JobStatusRunning,
	"PROGRESS":  JobStatusRunning,
	"SUCCESS":   JobStatusSucceeded,
	"SUCCEEDED": JobStatusSucceeded,
	"COMPLETED": JobStatusSucceeded,
	"DONE":      JobStatusSucceeded,
	"FAILURE":   JobStatusFailed,
	"FAILED":    JobStatusFailed,
	"REVOKED":   JobStatusFailed,
	"ERROR":     JobStatusFailed,
}

// ParseJobStatus normalizes a remote status string (case-insensitive).
// Unrecognized values map to JobStatusPending with ok=false so the caller
// keeps polling and can log the unexpected value.
func ParseJobStatus(raw string) (status JobStatus, ok bool) {
	status, ok = remoteStatuses[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return JobStatusPending, false
	}
	return status, true
}

// IsTerminal reports whether status ends a tracking session.
func IsTerminal(status JobStatus) bool {
	return status == JobStatusSucceeded || status == JobStatusFailed
}

// IsTerminal reports whether the status is Succeeded or Failed
func (s JobStatus) IsTerminal() bool {
	return IsTerminal(s)
}

func (s JobStatus) String() string {
	return string(s)
}

// Outcome classifies how a tracking session ended.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeJobFailed       Outcome = "job_failed"       // server reported failure
	OutcomeTransportFailed Outcome = "transport_failed" // status could not be determined
)

// OutcomeFor maps a terminal status reported by the server to its Outcome.
// Non-terminal statuses map to OutcomeNone.
func OutcomeFor(status JobStatus) Outcome {
	switch status {
	case JobStatusSucceeded:
		return OutcomeSucceeded
	case JobStatusFailed:
		return OutcomeJobFailed
	default:
		return OutcomeNone
	}
}

// Update is one status publication from a tracking session.
type Update struct {
	JobID      JobID
	Status     JobStatus
	Terminal   bool
	Outcome    Outcome
	Err        error // set only when Outcome is OutcomeTransportFailed
	Sequence   int   // 1-based publication index within the session
	ObservedAt time.Time
}

// Succeeded reports whether the artifact can be retrieved.
func (u Update) Succeeded() bool {
	return u.Status == JobStatusSucceeded
}

// Submission is the result of a successful create + render-start sequence.
type Submission struct {
	ArtifactID ArtifactID `json:"artifact_id"`
	JobID      JobID      `json:"job_id"`
}
