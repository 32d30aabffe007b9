package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/x-xaie/cloud-IR/pkg/models"
)

// MemoryResultRepository is an in-memory ResultRepository with the same
// key scheme and scan semantics as the table-backed implementation.
// Used for local runs without cloud credentials and in tests.
type MemoryResultRepository struct {
	mu   sync.RWMutex
	rows map[string]*memoryRow // keyed by partitionKey + "/" + rowKey
}

type memoryRow struct {
	partitionKey string
	rowKey       string
	record       models.AnalysisRecord
}

// NewMemoryResultRepository creates an empty in-memory repository.
func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{rows: make(map[string]*memoryRow)}
}

// EnsureTable is a no-op for the in-memory backend.
func (r *MemoryResultRepository) EnsureTable(ctx context.Context) error {
	return nil
}

// Save inserts the record; inserting an existing row key is an error,
// matching the table backend's insert-not-upsert semantics.
func (r *MemoryResultRepository) Save(ctx context.Context, record *models.AnalysisRecord) error {
	partitionKey, rowKey := KeysFor(record)
	key := partitionKey + "/" + rowKey

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[key]; exists {
		return fmt.Errorf("%w: row %s already exists", ErrStorageUnavailable, key)
	}

	copied := cloneRecord(record)
	r.rows[key] = &memoryRow{
		partitionKey: partitionKey,
		rowKey:       rowKey,
		record:       copied,
	}
	return nil
}

// GetByImageID returns the matching record with the most recent
// analysis time, or ErrResultNotFound.
func (r *MemoryResultRepository) GetByImageID(ctx context.Context, imageID string) (*models.AnalysisRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.findLocked(imageID)
	if row == nil {
		return nil, ErrResultNotFound
	}
	record := cloneRecord(&row.record)
	return &record, nil
}

// QueryRange iterates rows in key order, keeping records whose
// partition date falls inside [start, end], stopping at limit.
func (r *MemoryResultRepository) QueryRange(ctx context.Context, start, end time.Time, limit int) ([]*models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	startKey := PartitionKeyFor(start)
	endKey := PartitionKeyFor(end)

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]*memoryRow, 0, len(r.rows))
	for _, row := range r.rows {
		if row.partitionKey >= startKey && row.partitionKey <= endKey {
			rows = append(rows, row)
		}
	}
	// Table storage iterates partition key then row key ascending.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].partitionKey != rows[j].partitionKey {
			return rows[i].partitionKey < rows[j].partitionKey
		}
		return rows[i].rowKey < rows[j].rowKey
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}

	records := make([]*models.AnalysisRecord, 0, len(rows))
	for _, row := range rows {
		record := cloneRecord(&row.record)
		records = append(records, &record)
	}
	return records, nil
}

// UpdateStatus rewrites the full stored record with the replaced
// status, forward transitions only.
func (r *MemoryResultRepository) UpdateStatus(ctx context.Context, imageID string, status models.AnalysisStatus) error {
	if !models.IsValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.findLocked(imageID)
	if row == nil {
		return ErrResultNotFound
	}
	if !models.CanTransition(row.record.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, row.record.Status, status)
	}
	row.record.Status = status
	return nil
}

// Len reports the number of stored rows.
func (r *MemoryResultRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func (r *MemoryResultRepository) findLocked(imageID string) *memoryRow {
	var best *memoryRow
	for _, row := range r.rows {
		if row.record.ImageID != imageID {
			continue
		}
		if best == nil || row.record.AnalyzedAt.After(best.record.AnalyzedAt) {
			best = row
		}
	}
	return best
}

// cloneRecord copies a record so callers cannot mutate stored state.
// Nested documents are shared; the repository treats them as immutable.
func cloneRecord(record *models.AnalysisRecord) models.AnalysisRecord {
	return *record
}
