package model

// EmbeddingCache is a persisted embedding keyed by model, task and the
// sha256 of the embedded text.
type EmbeddingCache struct {
	ModelName   string
	TaskType    string
	ContentHash string
	Embedding   []float32
	Ctime       int64
}
