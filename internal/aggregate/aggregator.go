package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/x-xaie/cloud-IR/pkg/models"
)

const (
	// Storage field size discipline for denormalized string columns.
	maxFieldChars = 1000

	// Summary keeps only the strongest tags.
	maxSummaryTags = 10
)

// BuildRecord merges feature-extraction and text-extraction output into
// the canonical analysis record. It is a pure function of its inputs:
// no I/O, no clock access, deterministic for identical arguments.
func BuildRecord(
	imageID string,
	blobRef string,
	features *models.FeatureSet,
	text models.TextResult,
	meta models.UploadMetadata,
	analyzedAt time.Time,
) models.AnalysisRecord {
	primary, confidence := primaryDescription(features)

	return models.AnalysisRecord{
		ImageID:    imageID,
		BlobRef:    blobRef,
		Status:     models.StatusCompleted,
		UploadedAt: meta.UploadTime,
		AnalyzedAt: analyzedAt,
		Features:   features,
		Text:       &text,
		Summary: models.Summary{
			ObjectCount:        len(features.Objects),
			FaceCount:          len(features.Faces),
			HasText:            text.Detected,
			PrimaryDescription: truncate(primary, maxFieldChars),
			Confidence:         round4(confidence),
			Tags:               truncate(topTags(features.Tags), maxFieldChars),
			FileSize:           meta.FileSize,
			Dimensions:         meta.Dimensions,
			Format:             meta.Format,
		},
	}
}

// primaryDescription picks the description with the highest confidence.
// An empty description set yields empty string and zero confidence.
func primaryDescription(features *models.FeatureSet) (string, float64) {
	best := ""
	bestConfidence := 0.0
	for i, d := range features.Descriptions {
		if i == 0 || d.Confidence > bestConfidence {
			best = d.Text
			bestConfidence = d.Confidence
		}
	}
	return best, bestConfidence
}

// topTags joins the names of the top 10 tags by confidence.
func topTags(tags []models.Tag) string {
	sorted := make([]models.Tag, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	if len(sorted) > maxSummaryTags {
		sorted = sorted[:maxSummaryTags]
	}

	names := make([]string, 0, len(sorted))
	for _, t := range sorted {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
