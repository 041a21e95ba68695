package worker

import (
	"context"
	"time"

	"github.com/webrecap/webrecap/internal/artifact"
	"github.com/webrecap/webrecap/internal/extract"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/notify"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// IngestWorker claims QUEUED documents, extracts and cleans their content,
// persists the artifact, and hands the document to the summarization stage.
type IngestWorker struct {
	documents *repo.DocumentRepo
	artifacts *artifact.Manager
	extractor *extract.Extractor
	bus       notify.Bus
}

func NewIngestWorker(documents *repo.DocumentRepo, artifacts *artifact.Manager, extractor *extract.Extractor, bus notify.Bus) *IngestWorker {
	return &IngestWorker{documents: documents, artifacts: artifacts, extractor: extractor, bus: bus}
}

func (w *IngestWorker) Loop(interval time.Duration) *Loop {
	return NewLoop("ingest", notify.ChannelNewDocument, w.bus, interval, w.drain)
}

func (w *IngestWorker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		doc, err := w.documents.ClaimNext(ctx, model.StatusQueued, model.StatusProcessing)
		if err != nil {
			if !appErr.IsNotFound(err) {
				logutil.GetLogger(ctx).Error("failed to claim document for ingestion", zap.Error(err))
			}
			return
		}
		w.handle(ctx, doc)
	}
}

func (w *IngestWorker) handle(ctx context.Context, doc *model.Document) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", doc.ID), zap.String("url", doc.URL))
	logger.Info("ingesting document", zap.String("source", doc.Source))

	progress := func(ctx context.Context, stage string) {
		publishProgress(ctx, w.bus, doc.ID, stage, nil)
	}

	candidate, err := w.extractor.Extract(ctx, doc.URL, doc.Source, progress)
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		w.fail(ctx, doc.ID)
		return
	}

	progress(ctx, model.StageIngesting)
	if _, err := w.artifacts.SaveCleaned(ctx, doc.ID, candidate.Content); err != nil {
		logger.Error("failed to persist artifact", zap.Error(err))
		w.fail(ctx, doc.ID)
		return
	}

	if err := w.documents.SetStatus(ctx, doc.ID, model.StatusIngested); err != nil {
		logger.Error("failed to mark document ingested", zap.Error(err))
		w.fail(ctx, doc.ID)
		return
	}
	if err := w.bus.Publish(ctx, notify.ChannelIngestedDoc, doc.ID); err != nil {
		logger.Warn("failed to publish ingested notification", zap.Error(err))
	}
	logger.Info("document ingested", zap.String("strategy", candidate.Source))
}

func (w *IngestWorker) fail(ctx context.Context, docID string) {
	if err := w.documents.SetStatus(ctx, docID, model.StatusError); err != nil {
		logutil.GetLogger(ctx).Error("failed to mark document errored",
			zap.String("doc_id", docID), zap.Error(err))
	}
	publishProgress(ctx, w.bus, docID, model.StageError, nil)
}
