package vision

import "github.com/x-xaie/cloud-IR/pkg/models"

// Wire shapes of the provider's REST API. Field names follow the
// provider's JSON; they are converted to pkg/models types at the
// client boundary so nothing downstream depends on the wire format.

type analyzeResponse struct {
	Categories []struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	} `json:"categories"`
	Adult struct {
		IsAdultContent bool    `json:"isAdultContent"`
		IsRacyContent  bool    `json:"isRacyContent"`
		IsGoryContent  bool    `json:"isGoryContent"`
		AdultScore     float64 `json:"adultScore"`
		RacyScore      float64 `json:"racyScore"`
		GoreScore      float64 `json:"goreScore"`
	} `json:"adult"`
	Color struct {
		DominantColorForeground string   `json:"dominantColorForeground"`
		DominantColorBackground string   `json:"dominantColorBackground"`
		DominantColors          []string `json:"dominantColors"`
		AccentColor             string   `json:"accentColor"`
		IsBWImg                 bool     `json:"isBWImg"`
	} `json:"color"`
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
	Description struct {
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	Faces []struct {
		Age           int    `json:"age"`
		Gender        string `json:"gender"`
		FaceRectangle struct {
			Left   int `json:"left"`
			Top    int `json:"top"`
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"faceRectangle"`
	} `json:"faces"`
	Objects []struct {
		Rectangle struct {
			X int `json:"x"`
			Y int `json:"y"`
			W int `json:"w"`
			H int `json:"h"`
		} `json:"rectangle"`
		Object     string  `json:"object"`
		Confidence float64 `json:"confidence"`
	} `json:"objects"`
	ImageType struct {
		ClipArtType     int `json:"clipArtType"`
		LineDrawingType int `json:"lineDrawingType"`
	} `json:"imageType"`
}

type readResultResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Page  int `json:"page"`
			Lines []struct {
				BoundingBox []float64 `json:"boundingBox"`
				Text        string    `json:"text"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

func (r *analyzeResponse) toFeatureSet() *models.FeatureSet {
	fs := &models.FeatureSet{
		Objects:      make([]models.ObjectDetection, 0, len(r.Objects)),
		Faces:        make([]models.FaceDetection, 0, len(r.Faces)),
		Descriptions: make([]models.Description, 0, len(r.Description.Captions)),
		Tags:         make([]models.Tag, 0, len(r.Tags)),
		Categories:   make([]models.Category, 0, len(r.Categories)),
		Color: models.ColorInfo{
			DominantForeground: r.Color.DominantColorForeground,
			DominantBackground: r.Color.DominantColorBackground,
			DominantColors:     r.Color.DominantColors,
			AccentColor:        r.Color.AccentColor,
			IsBWImage:          r.Color.IsBWImg,
		},
		Adult: models.AdultInfo{
			IsAdultContent: r.Adult.IsAdultContent,
			IsRacyContent:  r.Adult.IsRacyContent,
			IsGoryContent:  r.Adult.IsGoryContent,
			AdultScore:     r.Adult.AdultScore,
			RacyScore:      r.Adult.RacyScore,
			GoreScore:      r.Adult.GoreScore,
		},
		ImageType: models.ImageTypeInfo{
			ClipArtType:     r.ImageType.ClipArtType,
			LineDrawingType: r.ImageType.LineDrawingType,
		},
	}

	for _, o := range r.Objects {
		fs.Objects = append(fs.Objects, models.ObjectDetection{
			Name:       o.Object,
			Confidence: o.Confidence,
			Box:        models.BoundingBox{X: o.Rectangle.X, Y: o.Rectangle.Y, W: o.Rectangle.W, H: o.Rectangle.H},
		})
	}
	for _, f := range r.Faces {
		fs.Faces = append(fs.Faces, models.FaceDetection{
			Age:    f.Age,
			Gender: f.Gender,
			Box:    models.BoundingBox{X: f.FaceRectangle.Left, Y: f.FaceRectangle.Top, W: f.FaceRectangle.Width, H: f.FaceRectangle.Height},
		})
	}
	for _, c := range r.Description.Captions {
		fs.Descriptions = append(fs.Descriptions, models.Description{Text: c.Text, Confidence: c.Confidence})
	}
	for _, t := range r.Tags {
		fs.Tags = append(fs.Tags, models.Tag{Name: t.Name, Confidence: t.Confidence})
	}
	for _, c := range r.Categories {
		fs.Categories = append(fs.Categories, models.Category{Name: c.Name, Score: c.Score})
	}
	return fs
}
