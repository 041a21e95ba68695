package model

// Extraction strategy tags. API-native candidates outrank everything else at
// selection time regardless of score.
const (
	StrategyJSONAPI        = "json_api"
	StrategyStructuredData = "structured_data"
	StrategyReadability    = "readability"
	StrategyHTMLParsing    = "html_parsing"
	StrategyVideoAPI       = "video_api"
)

// Candidate is one strategy's standardized extraction attempt for a job.
type Candidate struct {
	Source   string            `json:"source"`
	Metadata CandidateMetadata `json:"metadata"`
	Content  string            `json:"content"`
}

type CandidateMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Channel     string `json:"channel,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	URL         string `json:"url"`
	Score       int64  `json:"score,omitempty"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Views       int64  `json:"views,omitempty"`
	Live        bool   `json:"live,omitempty"`
	Image       string `json:"image,omitempty"`
	Tags        string `json:"tags,omitempty"`
}
