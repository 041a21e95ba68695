package model

// Prototype is a stored embedding of previously accepted good content, used
// by the scorer as a novelty/quality signal and for near-duplicate detection.
type Prototype struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Ctime     int64     `json:"ctime"`
}
