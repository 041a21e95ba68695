package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Store is a TTL'd key-value cache. Implementations must be safe for
// concurrent use. All pipeline callers treat it as best-effort: a miss and a
// backend failure look the same, and writes that fail are logged, not fatal.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Default TTLs, mirroring how volatile each kind of entry is.
const (
	TTLSummary    = time.Hour
	TTLAISummary  = 24 * time.Hour
	TTLAIChunk    = 12 * time.Hour
	TTLWebContent = 2 * time.Hour
	TTLURLDoc     = 6 * time.Hour
)

func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ContentKey builds the cache key for a full-content AI result; the model
// parameters are part of the key so a config change never serves stale output.
func ContentKey(namespace, content, modelName string, temperature float64, chunkSize int) string {
	input := fmt.Sprintf("%s:%s:%.2f:%d", content, modelName, temperature, chunkSize)
	return namespace + ":" + HashText(input)
}

func URLDocKey(url string) string {
	return "url_doc:" + HashText(url)
}

func WebContentKey(url string) string {
	return "web_content:" + HashText(url)
}

func SummaryKey(docID string) string {
	return "summary:" + docID
}
