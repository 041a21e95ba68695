package job

import (
	"context"
	"time"

	"github.com/webrecap/webrecap/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// EmbeddingCacheCleanupJob drops embedding cache rows older than the max age.
type EmbeddingCacheCleanupJob struct {
	cache      *repo.EmbeddingCacheRepo
	maxAgeDays int
}

func NewEmbeddingCacheCleanupJob(cache *repo.EmbeddingCacheRepo, maxAgeDays int) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{cache: cache, maxAgeDays: maxAgeDays}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil || j.maxAgeDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -j.maxAgeDays).Unix()
	deleted, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("cleaned embedding cache", zap.Int64("deleted", deleted))
	}
	return nil
}
