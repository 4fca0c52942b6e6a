package model

// Content types
type ContentType string

const (
	ContentTypeEducational   ContentType = "educational"
	ContentTypeEntertainment ContentType = "entertainment"
	ContentTypeNews          ContentType = "news"
	ContentTypeTutorial      ContentType = "tutorial"
	ContentTypeInterview     ContentType = "interview"
	ContentTypeGeneral       ContentType = "general"
)

var ValidContentTypes = []ContentType{
	ContentTypeEducational, ContentTypeEntertainment, ContentTypeNews,
	ContentTypeTutorial, ContentTypeInterview, ContentTypeGeneral,
}

// Target platforms
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
)

var ValidPlatforms = []Platform{
	PlatformYouTube, PlatformTikTok, PlatformInstagram,
	PlatformLinkedIn, PlatformTwitter,
}

// KeyPoint ties a high-importance keyword back to its originating segment.
type KeyPoint struct {
	Text      string  `json:"text"`
	Keyword   string  `json:"keyword"`
	Timestamp float64 `json:"timestamp"`
}

// Analysis is the normalized output of the content-generation collaborator.
// Missing or malformed collaborator fields become safe defaults, never errors.
type Analysis struct {
	Summary           string      `json:"summary"`
	KeyPoints         []KeyPoint  `json:"keyPoints"`
	ContentType       ContentType `json:"contentType"`
	SuitablePlatforms []Platform  `json:"suitablePlatforms"`
}
