package repository

import (
	"context"
	"time"

	"github.com/x-xaie/cloud-IR/pkg/models"
)

// ResultRepository defines persistence for analysis records.
//
// Reads are safe to run concurrently with writes; a write completing
// after a concurrent scan started may or may not be visible to that
// scan. Status updates race with concurrent re-analysis of the same
// image ID: last writer wins, no optimistic concurrency check is made.
type ResultRepository interface {
	// EnsureTable provisions the backing table. Idempotent: an
	// already-existing table is success.
	EnsureTable(ctx context.Context) error

	// Save inserts a record. Single insert, never an upsert; row keys
	// are unique by construction.
	Save(ctx context.Context, record *models.AnalysisRecord) error

	// GetByImageID looks up a record by image ID via a filtered scan
	// (the image ID is not the primary key). When re-analysis produced
	// multiple rows the one with the most recent analysis time wins.
	// Returns ErrResultNotFound for unknown IDs.
	GetByImageID(ctx context.Context, imageID string) (*models.AnalysisRecord, error)

	// QueryRange returns records whose partition date falls inside
	// [start, end], both inclusive. Consumption of the scan stops once
	// limit records have been collected; this is a partial scan, not a
	// guarantee of the most recent N.
	QueryRange(ctx context.Context, start, end time.Time, limit int) ([]*models.AnalysisRecord, error)

	// UpdateStatus rewrites the full record with the replaced status.
	// Transitions only move forward; backward moves return
	// ErrInvalidTransition. Returns ErrResultNotFound for unknown IDs.
	UpdateStatus(ctx context.Context, imageID string, status models.AnalysisStatus) error
}
