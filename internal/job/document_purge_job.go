package job

import (
	"context"
	"time"

	"github.com/webrecap/webrecap/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// DocumentPurgeJob deletes failed and stuck documents older than the
// retention window, together with their transactions and summaries.
// Completed documents and shared artifacts stay.
type DocumentPurgeJob struct {
	documents *repo.DocumentRepo
	keepDays  int
}

func NewDocumentPurgeJob(documents *repo.DocumentRepo, keepDays int) *DocumentPurgeJob {
	return &DocumentPurgeJob{documents: documents, keepDays: keepDays}
}

func (j *DocumentPurgeJob) Name() string {
	return "document_purge"
}

func (j *DocumentPurgeJob) Run(ctx context.Context) error {
	if j.documents == nil || j.keepDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -j.keepDays).Unix()
	deleted, err := j.documents.DeleteStaleBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("purged old documents", zap.Int64("deleted", deleted))
	}
	return nil
}
