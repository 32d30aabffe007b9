package service

import (
	"context"
	"errors"

	"github.com/x-xaie/cloud-IR/internal/aggregate"
	apperrors "github.com/x-xaie/cloud-IR/internal/errors"
	"github.com/x-xaie/cloud-IR/internal/logger"
	"github.com/x-xaie/cloud-IR/internal/observer"
	"github.com/x-xaie/cloud-IR/internal/query"
	"github.com/x-xaie/cloud-IR/internal/repository"
	"github.com/x-xaie/cloud-IR/internal/vision"
	"github.com/x-xaie/cloud-IR/pkg/models"
	"github.com/x-xaie/cloud-IR/pkg/validation"
)

// VisionProvider is the slice of the vision client the pipeline needs.
type VisionProvider interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*models.FeatureSet, error)
	ExtractText(ctx context.Context, imageURL string) models.TextResult
}

// PipelineRequest carries the inputs of one analysis run.
type PipelineRequest struct {
	ImageID  string
	ImageURL string
	BlobRef  string
	Metadata *models.UploadMetadata
}

// PipelineResult is the outcome of one analysis run. Persisted reports
// whether the record reached storage; a false value still carries a
// complete record.
type PipelineResult struct {
	Record    *models.AnalysisRecord
	Persisted bool
}

// AnalysisService defines the analysis and retrieval surface.
type AnalysisService interface {
	RunAnalysisPipeline(ctx context.Context, request PipelineRequest) (*PipelineResult, error)
	GetResult(ctx context.Context, imageID string) (*models.AnalysisRecord, error)
	SearchResults(ctx context.Context, daysBack, maxResults int, filters models.SearchFilters) ([]*models.AnalysisRecord, error)
	GetStats(ctx context.Context, daysBack int) (*models.StatsReport, error)
}

type analysisService struct {
	provider  VisionProvider
	repo      repository.ResultRepository
	engine    *query.Engine
	publisher observer.Subject
	validator *validation.URLValidator
	clock     vision.Clock
}

// NewAnalysisService creates the analysis service. The publisher may be
// nil when event fan-out is not wanted.
func NewAnalysisService(
	provider VisionProvider,
	repo repository.ResultRepository,
	engine *query.Engine,
	publisher observer.Subject,
	clock vision.Clock,
) AnalysisService {
	if clock == nil {
		clock = vision.SystemClock{}
	}
	return &analysisService{
		provider:  provider,
		repo:      repo,
		engine:    engine,
		publisher: publisher,
		validator: validation.NewURLValidator(),
		clock:     clock,
	}
}

// RunAnalysisPipeline analyzes one image end to end: visual features,
// then text extraction, then aggregation, then persistence. Feature
// analysis failure aborts the run; text extraction failure degrades the
// record; save failure is reported through Persisted without discarding
// the result.
func (s *analysisService) RunAnalysisPipeline(ctx context.Context, request PipelineRequest) (*PipelineResult, error) {
	if request.ImageID == "" {
		return nil, apperrors.NewValidationError("image id is required", nil)
	}
	if err := s.validator.ValidateImageURL(request.ImageURL); err != nil {
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	started := s.clock.Now()
	s.publish(ctx, observer.PipelineEvent{
		EventType: observer.PipelineStarted,
		Timestamp: started,
		ImageID:   request.ImageID,
	})

	features, err := s.provider.AnalyzeImage(ctx, request.ImageURL)
	if err != nil {
		s.publish(ctx, observer.PipelineEvent{
			EventType:      observer.PipelineFailed,
			Timestamp:      s.clock.Now(),
			ImageID:        request.ImageID,
			ProcessingTime: s.clock.Now().Sub(started),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	text := s.provider.ExtractText(ctx, request.ImageURL)
	if !text.Detected && text.Note != "" {
		s.publish(ctx, observer.PipelineEvent{
			EventType: observer.TextExtractionDegraded,
			Timestamp: s.clock.Now(),
			ImageID:   request.ImageID,
			Metadata:  map[string]interface{}{"note": text.Note},
		})
	}

	meta := models.UploadMetadata{}
	if request.Metadata != nil {
		meta = *request.Metadata
	}
	record := aggregate.BuildRecord(request.ImageID, request.BlobRef, features, text, meta, s.clock.Now())

	persisted := s.persist(ctx, &record)
	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.PipelineCompleted,
		Timestamp:      s.clock.Now(),
		ImageID:        request.ImageID,
		ProcessingTime: s.clock.Now().Sub(started),
		Success:        true,
		Metadata:       map[string]interface{}{"persisted": persisted},
	})

	return &PipelineResult{Record: &record, Persisted: persisted}, nil
}

// persist saves the record, retrying once after a lazy table
// provisioning attempt. Failures are logged and reported, never fatal.
func (s *analysisService) persist(ctx context.Context, record *models.AnalysisRecord) bool {
	err := s.repo.Save(ctx, record)
	if err == nil {
		return true
	}

	logger.WithError(err).WithField("image_id", record.ImageID).
		Warn("Save failed, attempting table provisioning and retry")

	if ensureErr := s.repo.EnsureTable(ctx); ensureErr == nil {
		if err = s.repo.Save(ctx, record); err == nil {
			return true
		}
	}

	logger.WithError(err).WithField("image_id", record.ImageID).
		Error("Analysis result could not be persisted")
	s.publish(ctx, observer.PipelineEvent{
		EventType:    observer.ResultSaveFailed,
		Timestamp:    s.clock.Now(),
		ImageID:      record.ImageID,
		ErrorMessage: err.Error(),
	})
	return false
}

// GetResult fetches the stored record for an image ID.
func (s *analysisService) GetResult(ctx context.Context, imageID string) (*models.AnalysisRecord, error) {
	if imageID == "" {
		return nil, apperrors.NewValidationError("image id is required", nil)
	}

	record, err := s.repo.GetByImageID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			return nil, apperrors.NewNotFoundError("no analysis result for image", err)
		}
		return nil, apperrors.NewStorageError("result lookup failed", err)
	}
	return record, nil
}

// SearchResults delegates to the query engine.
func (s *analysisService) SearchResults(ctx context.Context, daysBack, maxResults int, filters models.SearchFilters) ([]*models.AnalysisRecord, error) {
	records, err := s.engine.Search(ctx, daysBack, maxResults, filters)
	if err != nil {
		return nil, apperrors.NewStorageError("search failed", err)
	}
	return records, nil
}

// GetStats delegates to the query engine.
func (s *analysisService) GetStats(ctx context.Context, daysBack int) (*models.StatsReport, error) {
	report, err := s.engine.Stats(ctx, daysBack)
	if err != nil {
		return nil, apperrors.NewStorageError("stats computation failed", err)
	}
	return report, nil
}

func (s *analysisService) publish(ctx context.Context, event observer.PipelineEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.NotifyObservers(ctx, event)
}
