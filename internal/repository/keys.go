package repository

import (
	"time"

	"github.com/x-xaie/cloud-IR/pkg/models"
)

// Key scheme: PartitionKey is the UTC date of analysis time, which
// bounds a partition to one day's volume and makes time-range queries a
// contiguous partition-key range scan. RowKey embeds the image ID plus
// the analysis timestamp so re-analysis of the same image in the same
// second still produces a distinct row. The trade-off is that lookup by
// image ID needs a filtered scan; see GetByImageID.

const (
	partitionKeyLayout = "2006-01-02"
	rowKeyTimeLayout   = "20060102150405"
)

// PartitionKeyFor returns the partition key for an analysis time.
func PartitionKeyFor(analyzedAt time.Time) string {
	return analyzedAt.UTC().Format(partitionKeyLayout)
}

// RowKeyFor returns the row key for a record analyzed at the given time.
func RowKeyFor(imageID string, analyzedAt time.Time) string {
	return imageID + "_" + analyzedAt.UTC().Format(rowKeyTimeLayout)
}

// KeysFor returns both keys for a record.
func KeysFor(record *models.AnalysisRecord) (partitionKey, rowKey string) {
	return PartitionKeyFor(record.AnalyzedAt), RowKeyFor(record.ImageID, record.AnalyzedAt)
}
