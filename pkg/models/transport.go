package models

// AnalyzeRequest is the body of POST /images/:id/analyze. The image ID
// comes from the path; the URL must be reachable by the vision provider.
type AnalyzeRequest struct {
	ImageURL string         `json:"imageUrl" binding:"required,url"`
	BlobName string         `json:"blobName,omitempty"`
	Metadata UploadMetadata `json:"metadata"`
}

// AnalyzeResponse is the body returned by the analyze endpoint. Cached
// reports whether the record was persisted; analysis data is returned
// either way.
type AnalyzeResponse struct {
	Success bool            `json:"success"`
	ImageID string          `json:"imageId"`
	Cached  bool            `json:"cached"`
	Results *AnalysisRecord `json:"results"`
}

// UploadResponse mirrors the historical upload endpoint's JSON shape.
type UploadResponse struct {
	Success   bool           `json:"success"`
	ImageID   string         `json:"imageId"`
	BlobName  string         `json:"blobName"`
	UploadURL string         `json:"uploadUrl"`
	Message   string         `json:"message"`
	Metadata  UploadMetadata `json:"metadata"`
}

// SearchFilters is the conjunction of summary predicates applied after
// the range scan. A false flag means "no constraint", not "must be false".
type SearchFilters struct {
	HasFaces   bool `json:"hasFaces"`
	HasObjects bool `json:"hasObjects"`
	HasText    bool `json:"hasText"`
}

// SearchResponse wraps filtered search results.
type SearchResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Results []*AnalysisRecord `json:"results"`
}

// StatsReport aggregates stored records over a trailing time window.
type StatsReport struct {
	TotalImages   int              `json:"totalImages"`
	WithFaces     int              `json:"withFaces"`
	WithObjects   int              `json:"withObjects"`
	WithText      int              `json:"withText"`
	TotalObjects  int              `json:"totalObjectsDetected"`
	TotalFaces    int              `json:"totalFacesDetected"`
	AvgConfidence float64          `json:"averageConfidence"`
	Percentages   StatsPercentages `json:"percentages"`
	DaysBack      int              `json:"daysBack"`
}

// StatsPercentages are count/total*100 breakdowns, rounded to 2 decimals,
// zero when no records matched.
type StatsPercentages struct {
	WithFaces   float64 `json:"withFaces"`
	WithObjects float64 `json:"withObjects"`
	WithText    float64 `json:"withText"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
