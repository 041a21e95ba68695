package model

const ArtifactKindText = "TEXT"

// Artifact is a content-addressed record of cleaned extraction text. Many
// documents may point at one artifact when their cleaned content hashes equal.
type Artifact struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	URI   string `json:"uri"`
	Hash  string `json:"hash"`
	Ctime int64  `json:"ctime"`
}
