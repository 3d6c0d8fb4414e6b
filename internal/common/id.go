package common

import (
	"github.com/google/uuid"
)

// NewRequestID generates a unique id for the X-Request-ID header
// Format: req_<uuid>
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewSessionID generates a unique tracking session id used to correlate log lines
func NewSessionID() string {
	return "trk_" + uuid.New().String()
}
