package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/webrecap/webrecap/internal/artifact"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/notify"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/webrecap/webrecap/internal/summarize"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// SummaryWorker claims INGESTED documents, summarizes their artifact content
// under a fresh transaction, and records the result.
type SummaryWorker struct {
	documents    *repo.DocumentRepo
	transactions *repo.TransactionRepo
	summaries    *repo.SummaryRepo
	artifactRepo *repo.ArtifactRepo
	artifacts    *artifact.Manager
	summarizer   *summarize.Summarizer
	bus          notify.Bus
}

func NewSummaryWorker(
	documents *repo.DocumentRepo,
	transactions *repo.TransactionRepo,
	summaries *repo.SummaryRepo,
	artifactRepo *repo.ArtifactRepo,
	artifacts *artifact.Manager,
	summarizer *summarize.Summarizer,
	bus notify.Bus,
) *SummaryWorker {
	return &SummaryWorker{
		documents:    documents,
		transactions: transactions,
		summaries:    summaries,
		artifactRepo: artifactRepo,
		artifacts:    artifacts,
		summarizer:   summarizer,
		bus:          bus,
	}
}

func (w *SummaryWorker) Loop(interval time.Duration) *Loop {
	return NewLoop("summary", notify.ChannelIngestedDoc, w.bus, interval, w.drain)
}

func (w *SummaryWorker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		doc, err := w.documents.ClaimNext(ctx, model.StatusIngested, model.StatusProcessing)
		if err != nil {
			if !appErr.IsNotFound(err) {
				logutil.GetLogger(ctx).Error("failed to claim document for summarization", zap.Error(err))
			}
			return
		}
		w.handle(ctx, doc)
	}
}

func (w *SummaryWorker) handle(ctx context.Context, doc *model.Document) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", doc.ID))
	logger.Info("summarizing document")

	txn := &model.Transaction{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Status:     model.StatusProcessing,
		Ctime:      time.Now().Unix(),
	}
	if err := w.transactions.Create(ctx, txn); err != nil {
		logger.Error("failed to create transaction", zap.Error(err))
		w.fail(ctx, doc.ID, "")
		return
	}

	publishProgress(ctx, w.bus, doc.ID, model.StageSummarizing, nil)
	art, content, err := w.loadContent(ctx, doc)
	if err != nil {
		logger.Error("failed to load artifact content", zap.Error(err))
		w.fail(ctx, doc.ID, txn.ID)
		return
	}

	result, err := w.summarizer.Summarize(ctx, content)
	if err != nil {
		logger.Error("summarization failed", zap.Error(err))
		w.fail(ctx, doc.ID, txn.ID)
		return
	}

	publishProgress(ctx, w.bus, doc.ID, model.StageFinalizing, nil)
	summary := &model.Summary{
		ID:            uuid.NewString(),
		Type:          model.SummaryTypeTLDR,
		Content:       result,
		ArtifactURL:   art.URI,
		TransactionID: txn.ID,
		Ctime:         time.Now().Unix(),
	}
	if err := w.summaries.Create(ctx, summary); err != nil {
		logger.Error("failed to persist summary", zap.Error(err))
		w.fail(ctx, doc.ID, txn.ID)
		return
	}
	if err := w.transactions.SetStatus(ctx, txn.ID, model.StatusCompleted); err != nil {
		logger.Warn("failed to mark transaction completed", zap.Error(err))
	}
	if err := w.documents.SetStatus(ctx, doc.ID, model.StatusCompleted); err != nil {
		logger.Error("failed to mark document completed", zap.Error(err))
		w.fail(ctx, doc.ID, txn.ID)
		return
	}
	publishProgress(ctx, w.bus, doc.ID, model.StageCompleted, result)
	logger.Info("document summarized", zap.String("transaction_id", txn.ID))
}

func (w *SummaryWorker) loadContent(ctx context.Context, doc *model.Document) (*model.Artifact, string, error) {
	if doc.ArtifactID == "" {
		return nil, "", fmt.Errorf("%w: document %s has no artifact", appErr.ErrInvalid, doc.ID)
	}
	art, err := w.artifactRepo.Get(ctx, doc.ArtifactID)
	if err != nil {
		return nil, "", err
	}
	content, err := w.artifacts.Read(ctx, art)
	if err != nil {
		return nil, "", err
	}
	return art, content, nil
}

func (w *SummaryWorker) fail(ctx context.Context, docID string, txnID string) {
	if txnID != "" {
		if err := w.transactions.SetStatus(ctx, txnID, model.StatusError); err != nil {
			logutil.GetLogger(ctx).Warn("failed to mark transaction errored",
				zap.String("transaction_id", txnID), zap.Error(err))
		}
	}
	if err := w.documents.SetStatus(ctx, docID, model.StatusError); err != nil {
		logutil.GetLogger(ctx).Error("failed to mark document errored",
			zap.String("doc_id", docID), zap.Error(err))
	}
	publishProgress(ctx, w.bus, docID, model.StageError, nil)
}
