package model

const (
	SourceWebpage = "WEBPAGE"
	SourceYouTube = "YOUTUBE"
	SourceTwitch  = "TWITCH"
)

const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusIngested   = "INGESTED"
	StatusCompleted  = "COMPLETED"
	StatusError      = "ERROR"
)

type Document struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	Status     string `json:"status"`
	OwnerID    string `json:"owner_id,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Ctime      int64  `json:"ctime"`
}
