package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webrecap/webrecap/internal/ai"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// lruEmbedder keeps hot embeddings in memory in front of the persistent
// tier; scoring embeds the same reference and candidate texts repeatedly
// within one job run.
type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key, _, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if hit, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("task_type", taskType))
		return cloneEmbedding(hit), nil
	}
	vec, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(vec))
	return vec, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

// cloneEmbedding guards cached vectors against caller mutation.
func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
