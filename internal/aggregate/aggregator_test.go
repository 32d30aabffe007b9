package aggregate

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/x-xaie/cloud-IR/pkg/models"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testMetadata() models.UploadMetadata {
	return models.UploadMetadata{
		OriginalName: "photo.jpg",
		FileSize:     123456,
		Dimensions:   "1920x1080",
		Format:       "jpeg",
		UploadTime:   testTime.Add(-time.Minute),
	}
}

func TestBuildRecord_IsPure(t *testing.T) {
	features := &models.FeatureSet{
		Objects:      []models.ObjectDetection{{Name: "dog", Confidence: 0.9}},
		Faces:        []models.FaceDetection{{Age: 30, Gender: "Male"}},
		Descriptions: []models.Description{{Text: "a dog", Confidence: 0.8}},
		Tags:         []models.Tag{{Name: "dog", Confidence: 0.95}},
	}
	text := models.TextResult{Detected: true, Lines: []models.TextLine{{Text: "hi"}}}

	first := BuildRecord("id-1", "blob-1", features, text, testMetadata(), testTime)
	second := BuildRecord("id-1", "blob-1", features, text, testMetadata(), testTime)

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical records for identical inputs")
	}
}

func TestBuildRecord_PrimaryDescription(t *testing.T) {
	tests := []struct {
		name           string
		descriptions   []models.Description
		wantText       string
		wantConfidence float64
	}{
		{
			name: "highest confidence wins",
			descriptions: []models.Description{
				{Text: "a cat", Confidence: 0.6},
				{Text: "a dog on grass", Confidence: 0.93},
				{Text: "an animal", Confidence: 0.85},
			},
			wantText:       "a dog on grass",
			wantConfidence: 0.93,
		},
		{
			name:           "empty set defaults to empty and zero",
			descriptions:   nil,
			wantText:       "",
			wantConfidence: 0,
		},
		{
			name: "tie keeps first",
			descriptions: []models.Description{
				{Text: "first", Confidence: 0.5},
				{Text: "second", Confidence: 0.5},
			},
			wantText:       "first",
			wantConfidence: 0.5,
		},
		{
			name: "confidence rounded to 4 decimals",
			descriptions: []models.Description{
				{Text: "precise", Confidence: 0.123456789},
			},
			wantText:       "precise",
			wantConfidence: 0.1235,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features := &models.FeatureSet{Descriptions: tt.descriptions}
			record := BuildRecord("id", "blob", features, models.TextResult{}, testMetadata(), testTime)

			if record.Summary.PrimaryDescription != tt.wantText {
				t.Errorf("PrimaryDescription = %q, want %q", record.Summary.PrimaryDescription, tt.wantText)
			}
			if record.Summary.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", record.Summary.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestBuildRecord_PrimaryDescriptionTruncated(t *testing.T) {
	long := strings.Repeat("x", 1500)
	features := &models.FeatureSet{
		Descriptions: []models.Description{{Text: long, Confidence: 0.9}},
	}

	record := BuildRecord("id", "blob", features, models.TextResult{}, testMetadata(), testTime)

	if got := len(record.Summary.PrimaryDescription); got != 1000 {
		t.Errorf("Expected description truncated to 1000 chars, got %d", got)
	}
}

func TestBuildRecord_TagsSummary(t *testing.T) {
	tags := make([]models.Tag, 15)
	for i := range tags {
		// ascending confidence: tag-14 is the strongest
		tags[i] = models.Tag{
			Name:       "tag-" + string(rune('a'+i)),
			Confidence: float64(i) / 15,
		}
	}
	features := &models.FeatureSet{Tags: tags}

	record := BuildRecord("id", "blob", features, models.TextResult{}, testMetadata(), testTime)

	parts := strings.Split(record.Summary.Tags, ", ")
	if len(parts) != 10 {
		t.Fatalf("Expected 10 tags in summary, got %d (%q)", len(parts), record.Summary.Tags)
	}
	if parts[0] != "tag-"+string(rune('a'+14)) {
		t.Errorf("Expected strongest tag first, got %q", parts[0])
	}
	if len(record.Summary.Tags) > 1000 {
		t.Errorf("Tags summary exceeds 1000 chars: %d", len(record.Summary.Tags))
	}
}

func TestBuildRecord_CountsAndText(t *testing.T) {
	features := &models.FeatureSet{
		Objects: []models.ObjectDetection{{Name: "dog"}, {Name: "ball"}},
		Faces:   []models.FaceDetection{{Age: 25}},
	}
	text := models.TextResult{
		Detected: true,
		Lines: []models.TextLine{
			{Text: "one"}, {Text: "two"}, {Text: "three"},
		},
	}

	record := BuildRecord("a1", "blob-a1", features, text, testMetadata(), testTime)

	if record.Summary.ObjectCount != 2 {
		t.Errorf("ObjectCount = %d, want 2", record.Summary.ObjectCount)
	}
	if record.Summary.FaceCount != 1 {
		t.Errorf("FaceCount = %d, want 1", record.Summary.FaceCount)
	}
	if !record.Summary.HasText {
		t.Error("Expected HasText=true")
	}
	if record.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want completed", record.Status)
	}
	if record.Summary.FileSize != 123456 || record.Summary.Dimensions != "1920x1080" || record.Summary.Format != "jpeg" {
		t.Errorf("Upload metadata not copied into summary: %+v", record.Summary)
	}
	if record.Features == nil || record.Text == nil {
		t.Error("Completed record must carry features and text")
	}
}

func TestBuildRecord_DegradedTextResult(t *testing.T) {
	features := &models.FeatureSet{}
	text := models.TextResult{Detected: false, Note: "text extraction timed out after 10 attempts"}

	record := BuildRecord("id", "blob", features, text, testMetadata(), testTime)

	if record.Summary.HasText {
		t.Error("Expected HasText=false for degraded text result")
	}
	if record.Text.Note == "" {
		t.Error("Expected diagnostic note preserved on record")
	}
}
