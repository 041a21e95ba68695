package job

import (
	"context"

	"github.com/webrecap/webrecap/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// PrototypePruneJob caps the prototype corpus, dropping the oldest rows so
// the nearest-neighbor scan stays bounded.
type PrototypePruneJob struct {
	prototypes *repo.PrototypeRepo
	maxRows    int64
}

func NewPrototypePruneJob(prototypes *repo.PrototypeRepo, maxRows int64) *PrototypePruneJob {
	return &PrototypePruneJob{prototypes: prototypes, maxRows: maxRows}
}

func (j *PrototypePruneJob) Name() string {
	return "prototype_prune"
}

func (j *PrototypePruneJob) Run(ctx context.Context) error {
	if j.prototypes == nil || j.maxRows <= 0 {
		return nil
	}
	count, err := j.prototypes.Count(ctx)
	if err != nil {
		return err
	}
	if count <= j.maxRows {
		return nil
	}
	pruned, err := j.prototypes.PruneOldest(ctx, j.maxRows)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("pruned prototype corpus",
		zap.Int64("count", count), zap.Int64("pruned", pruned))
	return nil
}
