package models

// FeatureSet is the structured output of the synchronous feature-extraction
// call. All categories are requested from the provider in one round trip.
type FeatureSet struct {
	Objects      []ObjectDetection `json:"objects"`
	Faces        []FaceDetection   `json:"faces"`
	Descriptions []Description     `json:"descriptions"`
	Tags         []Tag             `json:"tags"`
	Categories   []Category        `json:"categories"`
	Color        ColorInfo         `json:"color"`
	Adult        AdultInfo         `json:"adult"`
	ImageType    ImageTypeInfo     `json:"imageType"`
}

// BoundingBox is a pixel-space rectangle.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// ObjectDetection is a single detected object.
type ObjectDetection struct {
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"boundingBox"`
}

// FaceDetection is a single detected face.
type FaceDetection struct {
	Age    int         `json:"age"`
	Gender string      `json:"gender"`
	Box    BoundingBox `json:"boundingBox"`
}

// Description is a natural-language scene caption with confidence.
type Description struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Tag is a content label with confidence.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Category is a taxonomy assignment with score.
type Category struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ColorInfo captures the provider's color assessment.
type ColorInfo struct {
	DominantForeground string   `json:"dominantColorForeground"`
	DominantBackground string   `json:"dominantColorBackground"`
	DominantColors     []string `json:"dominantColors"`
	AccentColor        string   `json:"accentColor"`
	IsBWImage          bool     `json:"isBWImg"`
}

// AdultInfo captures the provider's adult-content assessment.
type AdultInfo struct {
	IsAdultContent bool    `json:"isAdultContent"`
	IsRacyContent  bool    `json:"isRacyContent"`
	IsGoryContent  bool    `json:"isGoryContent"`
	AdultScore     float64 `json:"adultScore"`
	RacyScore      float64 `json:"racyScore"`
	GoreScore      float64 `json:"goreScore"`
}

// ImageTypeInfo captures clip-art / line-drawing classification.
type ImageTypeInfo struct {
	ClipArtType     int `json:"clipArtType"`
	LineDrawingType int `json:"lineDrawingType"`
}

// TextResult is the outcome of the asynchronous text-extraction
// sub-protocol. Detected is false when the operation failed or timed
// out; Note carries the diagnostic in that case.
type TextResult struct {
	Detected bool       `json:"detected"`
	Lines    []TextLine `json:"lines"`
	Note     string     `json:"note,omitempty"`
}

// TextLine is one extracted line of text with its bounding polygon.
type TextLine struct {
	Text        string    `json:"text"`
	BoundingBox []float64 `json:"boundingBox"`
}
