package models

import "fmt"

// Artifact is a downloaded PDF on local disk
type Artifact struct {
	ID    ArtifactID `json:"id"`
	Path  string     `json:"path"`
	Bytes int64      `json:"bytes"`
	Pages int        `json:"pages,omitempty"` // zero when verification is disabled
}

// ArtifactFileName returns the file name the render worker uses for id
func ArtifactFileName(id ArtifactID) string {
	return fmt.Sprintf("report_%d.pdf", id)
}
