package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/sirupsen/logrus"

	"github.com/x-xaie/cloud-IR/internal/logger"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

// TableResultRepository persists analysis records in Azure Table
// storage using the date/imageID key scheme from keys.go. The summary
// fields are flattened into queryable columns; the full feature and
// text documents ride along as opaque serialized properties.
type TableResultRepository struct {
	client *aztables.Client
}

// resultEntity is the stored row shape. Timestamps are RFC 3339 strings
// so the record round-trips without EDM type annotations.
type resultEntity struct {
	aztables.Entity

	ImageID            string  `json:"ImageId"`
	BlobRef            string  `json:"BlobRef"`
	Status             string  `json:"Status"`
	UploadedAt         string  `json:"UploadedAt"`
	AnalyzedAt         string  `json:"AnalyzedAt"`
	ObjectCount        int     `json:"ObjectCount"`
	FaceCount          int     `json:"FaceCount"`
	HasText            bool    `json:"HasText"`
	PrimaryDescription string  `json:"PrimaryDescription"`
	Confidence         float64 `json:"Confidence"`
	Tags               string  `json:"Tags"`
	FileSize           int64   `json:"FileSize"`
	Dimensions         string  `json:"Dimensions"`
	Format             string  `json:"Format"`
	FeaturesJSON       string  `json:"FeaturesJson"`
	TextJSON           string  `json:"TextJson"`
}

// NewTableResultRepository creates a repository backed by Azure Table
// storage. The client is constructed once and shared; no per-request
// client construction.
func NewTableResultRepository(accountName, accountKey, tableName string) (*TableResultRepository, error) {
	credential, err := aztables.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid table storage credentials: %w", err)
	}

	service, err := aztables.NewServiceClientWithSharedKey(
		fmt.Sprintf("https://%s.table.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}

	return &TableResultRepository{client: service.NewClient(tableName)}, nil
}

// EnsureTable creates the backing table if absent. "Already exists" is
// success; any other provisioning error is logged and surfaced so the
// caller can retry lazily on first write.
func (r *TableResultRepository) EnsureTable(ctx context.Context) error {
	_, err := r.client.CreateTable(ctx, nil)
	if err == nil {
		return nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.ErrorCode == "TableAlreadyExists" {
		return nil
	}

	logger.WithError(err).Error("Failed to provision results table")
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// Save inserts the record as a new row. Never an upsert: the row key is
// unique by construction (same-second re-analysis of one image collides
// only if the image ID also matches, treated as acceptably improbable).
func (r *TableResultRepository) Save(ctx context.Context, record *models.AnalysisRecord) error {
	entity, err := toEntity(record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := r.client.AddEntity(ctx, data, nil); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"image_id":      record.ImageID,
			"partition_key": entity.PartitionKey,
		}).Error("Failed to save analysis record")
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetByImageID scans with a server-side filter on the ImageId column.
// When re-analysis produced several rows for the same image the most
// recent analysis time wins.
func (r *TableResultRepository) GetByImageID(ctx context.Context, imageID string) (*models.AnalysisRecord, error) {
	entity, err := r.findByImageID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return fromEntity(entity)
}

func (r *TableResultRepository) findByImageID(ctx context.Context, imageID string) (*resultEntity, error) {
	filter := fmt.Sprintf("ImageId eq '%s'", escapeFilterValue(imageID))
	pager := r.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var best *resultEntity
	var bestAnalyzedAt time.Time

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			logger.WithError(err).WithField("image_id", imageID).Error("Lookup scan failed")
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		for _, raw := range page.Entities {
			var entity resultEntity
			if err := json.Unmarshal(raw, &entity); err != nil {
				logger.WithError(err).Warn("Skipping undecodable result row")
				continue
			}
			analyzedAt, err := time.Parse(time.RFC3339Nano, entity.AnalyzedAt)
			if err != nil {
				analyzedAt = time.Time{}
			}
			if best == nil || analyzedAt.After(bestAnalyzedAt) {
				copied := entity
				best = &copied
				bestAnalyzedAt = analyzedAt
			}
		}
	}

	if best == nil {
		return nil, ErrResultNotFound
	}
	return best, nil
}

// QueryRange filters on an inclusive partition-key range and stops
// consuming the scan once limit rows have been collected.
func (r *TableResultRepository) QueryRange(ctx context.Context, start, end time.Time, limit int) ([]*models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	filter := fmt.Sprintf("PartitionKey ge '%s' and PartitionKey le '%s'",
		PartitionKeyFor(start), PartitionKeyFor(end))
	top := int32(limit)
	pager := r.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
		Top:    &top,
	})

	records := make([]*models.AnalysisRecord, 0, limit)
	for pager.More() && len(records) < limit {
		page, err := pager.NextPage(ctx)
		if err != nil {
			logger.WithError(err).Error("Range scan failed")
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		for _, raw := range page.Entities {
			if len(records) >= limit {
				break
			}
			var entity resultEntity
			if err := json.Unmarshal(raw, &entity); err != nil {
				logger.WithError(err).Warn("Skipping undecodable result row")
				continue
			}
			record, err := fromEntity(&entity)
			if err != nil {
				logger.WithError(err).Warn("Skipping unmappable result row")
				continue
			}
			records = append(records, record)
		}
	}
	return records, nil
}

// UpdateStatus rewrites the full row with the replaced status (full
// replace, not a partial patch). Known race: a concurrent re-analysis
// of the same image ID is resolved last-writer-wins.
func (r *TableResultRepository) UpdateStatus(ctx context.Context, imageID string, status models.AnalysisStatus) error {
	if !models.IsValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	entity, err := r.findByImageID(ctx, imageID)
	if err != nil {
		return err
	}

	if !models.CanTransition(models.AnalysisStatus(entity.Status), status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entity.Status, status)
	}

	entity.Status = string(status)
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	updateMode := aztables.UpdateModeReplace
	if _, err := r.client.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: updateMode}); err != nil {
		logger.WithError(err).WithField("image_id", imageID).Error("Failed to update record status")
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func toEntity(record *models.AnalysisRecord) (*resultEntity, error) {
	featuresJSON, err := json.Marshal(record.Features)
	if err != nil {
		return nil, err
	}
	textJSON, err := json.Marshal(record.Text)
	if err != nil {
		return nil, err
	}

	partitionKey, rowKey := KeysFor(record)
	return &resultEntity{
		Entity: aztables.Entity{
			PartitionKey: partitionKey,
			RowKey:       rowKey,
		},
		ImageID:            record.ImageID,
		BlobRef:            record.BlobRef,
		Status:             string(record.Status),
		UploadedAt:         record.UploadedAt.UTC().Format(time.RFC3339Nano),
		AnalyzedAt:         record.AnalyzedAt.UTC().Format(time.RFC3339Nano),
		ObjectCount:        record.Summary.ObjectCount,
		FaceCount:          record.Summary.FaceCount,
		HasText:            record.Summary.HasText,
		PrimaryDescription: record.Summary.PrimaryDescription,
		Confidence:         record.Summary.Confidence,
		Tags:               record.Summary.Tags,
		FileSize:           record.Summary.FileSize,
		Dimensions:         record.Summary.Dimensions,
		Format:             record.Summary.Format,
		FeaturesJSON:       string(featuresJSON),
		TextJSON:           string(textJSON),
	}, nil
}

func fromEntity(entity *resultEntity) (*models.AnalysisRecord, error) {
	record := &models.AnalysisRecord{
		ImageID: entity.ImageID,
		BlobRef: entity.BlobRef,
		Status:  models.AnalysisStatus(entity.Status),
		Summary: models.Summary{
			ObjectCount:        entity.ObjectCount,
			FaceCount:          entity.FaceCount,
			HasText:            entity.HasText,
			PrimaryDescription: entity.PrimaryDescription,
			Confidence:         entity.Confidence,
			Tags:               entity.Tags,
			FileSize:           entity.FileSize,
			Dimensions:         entity.Dimensions,
			Format:             entity.Format,
		},
	}

	if t, err := time.Parse(time.RFC3339Nano, entity.UploadedAt); err == nil {
		record.UploadedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, entity.AnalyzedAt); err == nil {
		record.AnalyzedAt = t
	}

	if entity.FeaturesJSON != "" {
		var features models.FeatureSet
		if err := json.Unmarshal([]byte(entity.FeaturesJSON), &features); err != nil {
			return nil, fmt.Errorf("corrupt features document: %w", err)
		}
		record.Features = &features
	}
	if entity.TextJSON != "" {
		var text models.TextResult
		if err := json.Unmarshal([]byte(entity.TextJSON), &text); err != nil {
			return nil, fmt.Errorf("corrupt text document: %w", err)
		}
		record.Text = &text
	}
	return record, nil
}

// escapeFilterValue doubles single quotes per the OData filter grammar.
func escapeFilterValue(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
