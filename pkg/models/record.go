package models

import "time"

// AnalysisStatus tracks the lifecycle of a stored analysis record.
// Transitions only move forward: pending -> completed or failed.
type AnalysisStatus string

const (
	StatusPending   AnalysisStatus = "pending"
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

// statusRank orders statuses for the forward-only transition check.
var statusRank = map[AnalysisStatus]int{
	StatusPending:   0,
	StatusCompleted: 1,
	StatusFailed:    1,
}

// IsValidStatus reports whether s is a known analysis status.
func IsValidStatus(s AnalysisStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a record may move from one status to another.
// Terminal statuses never revert to pending.
func CanTransition(from, to AnalysisStatus) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	return statusRank[to] >= statusRank[from]
}

// AnalysisRecord is the canonical persisted analysis entity.
// ImageID and BlobRef are immutable once set; AnalyzedAt is set once at
// completion of the enrichment pipeline.
type AnalysisRecord struct {
	ImageID    string         `json:"imageId"`
	BlobRef    string         `json:"blobRef"`
	Status     AnalysisStatus `json:"status"`
	UploadedAt time.Time      `json:"uploadedAt"`
	AnalyzedAt time.Time      `json:"analyzedAt"`
	Features   *FeatureSet    `json:"features,omitempty"`
	Text       *TextResult    `json:"text,omitempty"`
	Summary    Summary        `json:"summary"`
}

// Summary holds the denormalized fields derived once at write time.
// These are the flattened columns the query engine filters on.
type Summary struct {
	ObjectCount        int     `json:"objectCount"`
	FaceCount          int     `json:"faceCount"`
	HasText            bool    `json:"hasText"`
	PrimaryDescription string  `json:"primaryDescription"`
	Confidence         float64 `json:"confidence"`
	Tags               string  `json:"tags"`
	FileSize           int64   `json:"fileSize"`
	Dimensions         string  `json:"dimensions"`
	Format             string  `json:"format"`
}

// UploadMetadata carries the facts captured by the upload collaborator.
type UploadMetadata struct {
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	Dimensions   string    `json:"dimensions"`
	Format       string    `json:"format"`
	UploadTime   time.Time `json:"uploadTime"`
}
