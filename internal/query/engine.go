package query

import (
	"context"
	"math"
	"time"

	"github.com/x-xaie/cloud-IR/internal/repository"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

const (
	defaultDaysBack   = 7
	defaultMaxResults = 50
)

// Clock abstracts "now" so time-window queries are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Engine serves filtered search and aggregate statistics over stored
// analysis records.
type Engine struct {
	repo           repository.ResultRepository
	clock          Clock
	maxResults     int
	statsScanLimit int
}

// NewEngine creates a query engine. maxResults caps search result
// counts; statsScanLimit is the internal ceiling on records consumed
// for a stats computation.
func NewEngine(repo repository.ResultRepository, clock Clock, maxResults, statsScanLimit int) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if maxResults <= 0 {
		maxResults = 100
	}
	if statsScanLimit <= 0 {
		statsScanLimit = 1000
	}
	return &Engine{
		repo:           repo,
		clock:          clock,
		maxResults:     maxResults,
		statsScanLimit: statsScanLimit,
	}
}

// Search scans [now-daysBack, now] and applies the requested filters as
// a conjunction in a second pass. A false filter flag means "no
// constraint", not "must be false": with all flags off the range scan
// output is returned unmodified.
func (e *Engine) Search(ctx context.Context, daysBack, maxResults int, filters models.SearchFilters) ([]*models.AnalysisRecord, error) {
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > e.maxResults {
		maxResults = e.maxResults
	}

	now := e.clock.Now()
	records, err := e.repo.QueryRange(ctx, now.AddDate(0, 0, -daysBack), now, maxResults)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.AnalysisRecord, 0, len(records))
	for _, record := range records {
		if matches(record, filters) {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// Stats computes aggregate counts and percentages over the same range,
// consuming up to the internal scan ceiling.
func (e *Engine) Stats(ctx context.Context, daysBack int) (*models.StatsReport, error) {
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}

	now := e.clock.Now()
	records, err := e.repo.QueryRange(ctx, now.AddDate(0, 0, -daysBack), now, e.statsScanLimit)
	if err != nil {
		return nil, err
	}

	report := &models.StatsReport{
		TotalImages: len(records),
		DaysBack:    daysBack,
	}

	confidenceSum := 0.0
	confidenceCount := 0
	for _, record := range records {
		if record.Summary.FaceCount > 0 {
			report.WithFaces++
		}
		if record.Summary.ObjectCount > 0 {
			report.WithObjects++
		}
		if record.Summary.HasText {
			report.WithText++
		}
		report.TotalObjects += record.Summary.ObjectCount
		report.TotalFaces += record.Summary.FaceCount

		// Zero-confidence records are excluded from the average, not
		// treated as zero.
		if record.Summary.Confidence > 0 {
			confidenceSum += record.Summary.Confidence
			confidenceCount++
		}
	}

	if confidenceCount > 0 {
		report.AvgConfidence = round2(confidenceSum / float64(confidenceCount))
	}
	report.Percentages = models.StatsPercentages{
		WithFaces:   percentage(report.WithFaces, report.TotalImages),
		WithObjects: percentage(report.WithObjects, report.TotalImages),
		WithText:    percentage(report.WithText, report.TotalImages),
	}
	return report, nil
}

func matches(record *models.AnalysisRecord, filters models.SearchFilters) bool {
	if filters.HasFaces && record.Summary.FaceCount == 0 {
		return false
	}
	if filters.HasObjects && record.Summary.ObjectCount == 0 {
		return false
	}
	if filters.HasText && !record.Summary.HasText {
		return false
	}
	return true
}

// percentage is count/total*100 rounded to 2 decimals, 0 when total is 0.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(count) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
