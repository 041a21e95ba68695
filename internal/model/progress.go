package model

import "encoding/json"

// Pipeline stages published on the progress channel.
const (
	StageQueued       = "QUEUED"
	StageFetchingHTML = "FETCHING_HTML"
	StageCleaning     = "CLEANING"
	StageIngesting    = "INGESTING"
	StageSummarizing  = "SUMMARIZING"
	StageFinalizing   = "FINALIZING"
	StageCompleted    = "COMPLETED"
	StageError        = "ERROR"

	// Control stages emitted only on the SSE stream, never persisted.
	StageConnected = "CONNECTED"
	StageHeartbeat = "HEARTBEAT"
)

type ProgressEvent struct {
	ID      string          `json:"id"`
	Stage   string          `json:"stage"`
	Summary json.RawMessage `json:"summary,omitempty"`
}

// Terminal reports whether the stage ends a progress stream.
func Terminal(stage string) bool {
	return stage == StageCompleted || stage == StageError
}
