package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/x-xaie/cloud-IR/internal/repository"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// recordingRepo wraps the in-memory repository and records the last
// QueryRange call so tests can assert window and limit defaults.
type recordingRepo struct {
	*repository.MemoryResultRepository

	lastStart time.Time
	lastEnd   time.Time
	lastLimit int
	failWith  error
}

func (r *recordingRepo) QueryRange(ctx context.Context, start, end time.Time, limit int) ([]*models.AnalysisRecord, error) {
	r.lastStart = start
	r.lastEnd = end
	r.lastLimit = limit
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.MemoryResultRepository.QueryRange(ctx, start, end, limit)
}

func newTestEngine(t *testing.T) (*Engine, *recordingRepo, time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := &recordingRepo{MemoryResultRepository: repository.NewMemoryResultRepository()}
	return NewEngine(repo, fixedClock{now: now}, 100, 1000), repo, now
}

func seedRecord(t *testing.T, repo *recordingRepo, imageID string, analyzedAt time.Time, summary models.Summary) {
	t.Helper()
	err := repo.MemoryResultRepository.Save(context.Background(), &models.AnalysisRecord{
		ImageID:    imageID,
		BlobRef:    "blob-" + imageID,
		Status:     models.StatusCompleted,
		UploadedAt: analyzedAt.Add(-time.Minute),
		AnalyzedAt: analyzedAt,
		Summary:    summary,
	})
	if err != nil {
		t.Fatalf("Seeding %s failed: %v", imageID, err)
	}
}

func TestSearch_DefaultsAndCap(t *testing.T) {
	engine, repo, now := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Search(ctx, 0, 0, models.SearchFilters{}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := repo.lastStart; !got.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("Default window start = %v, want 7 days back", got)
	}
	if repo.lastLimit != 50 {
		t.Errorf("Default limit = %d, want 50", repo.lastLimit)
	}

	if _, err := engine.Search(ctx, 30, 5000, models.SearchFilters{}); err != nil {
		t.Fatal(err)
	}
	if repo.lastLimit != 100 {
		t.Errorf("Oversized limit = %d, want capped at 100", repo.lastLimit)
	}
	if got := repo.lastStart; !got.Equal(now.AddDate(0, 0, -30)) {
		t.Errorf("Window start = %v, want 30 days back", got)
	}
}

func TestSearch_FilterConjunction(t *testing.T) {
	engine, repo, now := newTestEngine(t)
	ctx := context.Background()

	seedRecord(t, repo, "faces-only", now.Add(-time.Hour), models.Summary{FaceCount: 2})
	seedRecord(t, repo, "objects-only", now.Add(-2*time.Hour), models.Summary{ObjectCount: 3})
	seedRecord(t, repo, "everything", now.Add(-3*time.Hour), models.Summary{FaceCount: 1, ObjectCount: 1, HasText: true})
	seedRecord(t, repo, "nothing", now.Add(-4*time.Hour), models.Summary{})

	tests := []struct {
		name    string
		filters models.SearchFilters
		wantIDs map[string]bool
	}{
		{
			name:    "no filters returns all",
			filters: models.SearchFilters{},
			wantIDs: map[string]bool{"faces-only": true, "objects-only": true, "everything": true, "nothing": true},
		},
		{
			name:    "faces filter",
			filters: models.SearchFilters{HasFaces: true},
			wantIDs: map[string]bool{"faces-only": true, "everything": true},
		},
		{
			name:    "conjunction of all filters",
			filters: models.SearchFilters{HasFaces: true, HasObjects: true, HasText: true},
			wantIDs: map[string]bool{"everything": true},
		},
		{
			name:    "text filter",
			filters: models.SearchFilters{HasText: true},
			wantIDs: map[string]bool{"everything": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := engine.Search(ctx, 7, 50, tt.filters)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(records) != len(tt.wantIDs) {
				t.Fatalf("Got %d records, want %d", len(records), len(tt.wantIDs))
			}
			for _, record := range records {
				if !tt.wantIDs[record.ImageID] {
					t.Errorf("Unexpected record %q in results", record.ImageID)
				}
			}
		})
	}
}

func TestSearch_PropagatesRepositoryError(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	repo.failWith = repository.ErrStorageUnavailable

	_, err := engine.Search(context.Background(), 7, 50, models.SearchFilters{})
	if !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Errorf("Expected storage error to propagate, got %v", err)
	}
}

func TestStats_ComputesCountsAndPercentages(t *testing.T) {
	engine, repo, now := newTestEngine(t)
	ctx := context.Background()

	seedRecord(t, repo, "a", now.Add(-time.Hour), models.Summary{FaceCount: 2, ObjectCount: 3, HasText: true, Confidence: 0.9})
	seedRecord(t, repo, "b", now.Add(-2*time.Hour), models.Summary{ObjectCount: 1, Confidence: 0.6})
	seedRecord(t, repo, "c", now.Add(-3*time.Hour), models.Summary{})

	report, err := engine.Stats(ctx, 7)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if report.TotalImages != 3 {
		t.Errorf("TotalImages = %d, want 3", report.TotalImages)
	}
	if report.WithFaces != 1 || report.WithObjects != 2 || report.WithText != 1 {
		t.Errorf("Flag counts = faces %d objects %d text %d, want 1/2/1",
			report.WithFaces, report.WithObjects, report.WithText)
	}
	if report.TotalObjects != 4 || report.TotalFaces != 2 {
		t.Errorf("Totals = objects %d faces %d, want 4/2", report.TotalObjects, report.TotalFaces)
	}
	// Mean over the two records with positive confidence only.
	if report.AvgConfidence != 0.75 {
		t.Errorf("AvgConfidence = %v, want 0.75", report.AvgConfidence)
	}
	if report.Percentages.WithFaces != 33.33 {
		t.Errorf("Percentages.WithFaces = %v, want 33.33", report.Percentages.WithFaces)
	}
	if report.Percentages.WithObjects != 66.67 {
		t.Errorf("Percentages.WithObjects = %v, want 66.67", report.Percentages.WithObjects)
	}
	if report.DaysBack != 7 {
		t.Errorf("DaysBack = %d, want 7", report.DaysBack)
	}
}

func TestStats_EmptyWindowIsAllZeros(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	report, err := engine.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if report.TotalImages != 0 || report.AvgConfidence != 0 ||
		report.Percentages.WithFaces != 0 || report.Percentages.WithObjects != 0 || report.Percentages.WithText != 0 {
		t.Errorf("Expected all-zero report for empty window, got %+v", report)
	}
}

func TestStats_UsesScanCeiling(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := &recordingRepo{MemoryResultRepository: repository.NewMemoryResultRepository()}
	engine := NewEngine(repo, fixedClock{now: now}, 100, 5)

	for i := 0; i < 8; i++ {
		seedRecord(t, repo, fmt.Sprintf("img-%d", i), now.Add(-time.Duration(i)*time.Minute), models.Summary{})
	}

	report, err := engine.Stats(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if repo.lastLimit != 5 {
		t.Errorf("Scan limit = %d, want 5", repo.lastLimit)
	}
	if report.TotalImages != 5 {
		t.Errorf("TotalImages = %d, want ceiling of 5", report.TotalImages)
	}
}
