package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/webrecap/webrecap/internal/cache"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/notify"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// DocumentService owns document submission and summary lookup. Resubmitting a
// URL inside the reuse window returns the existing document instead of
// re-running the pipeline.
type DocumentService struct {
	documents   *repo.DocumentRepo
	summaries   *repo.SummaryRepo
	bus         notify.Bus
	store       cache.Store
	reuseWindow time.Duration
}

func NewDocumentService(documents *repo.DocumentRepo, summaries *repo.SummaryRepo, bus notify.Bus, store cache.Store, reuseWindow time.Duration) *DocumentService {
	return &DocumentService{
		documents:   documents,
		summaries:   summaries,
		bus:         bus,
		store:       store,
		reuseWindow: reuseWindow,
	}
}

// Submit validates and enqueues a URL. ownerID may be empty for anonymous
// callers. The bool result reports whether an existing document was reused.
func (s *DocumentService) Submit(ctx context.Context, rawURL string, ownerID string) (*model.Document, bool, error) {
	normalized, err := validateURL(rawURL)
	if err != nil {
		return nil, false, err
	}

	if existing := s.findReusable(ctx, normalized); existing != nil {
		logutil.GetLogger(ctx).Info("reusing recent document",
			zap.String("doc_id", existing.ID), zap.String("url", normalized))
		return existing, true, nil
	}

	doc := &model.Document{
		ID:      uuid.NewString(),
		URL:     normalized,
		Source:  DetectSource(normalized),
		Status:  model.StatusQueued,
		OwnerID: ownerID,
		Ctime:   time.Now().Unix(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, false, fmt.Errorf("%w: create document: %v", appErr.ErrPersistence, err)
	}
	s.cacheURLDoc(ctx, normalized, doc.ID)
	if err := s.bus.Publish(ctx, notify.ChannelNewDocument, doc.ID); err != nil {
		logutil.GetLogger(ctx).Warn("failed to publish new document notification",
			zap.String("doc_id", doc.ID), zap.Error(err))
	}
	return doc, false, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	return s.documents.Get(ctx, docID)
}

// GetSummary returns the newest summary for a document, serving from cache
// when possible.
func (s *DocumentService) GetSummary(ctx context.Context, docID string) (*model.Summary, error) {
	if cached := s.cachedSummary(ctx, docID); cached != nil {
		return cached, nil
	}
	summary, err := s.summaries.LatestByDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	s.cacheSummary(ctx, docID, summary)
	return summary, nil
}

// findReusable checks the URL→document cache first, then the database, for a
// non-errored document newer than the reuse window.
func (s *DocumentService) findReusable(ctx context.Context, normalized string) *model.Document {
	cutoff := time.Now().Add(-s.reuseWindow).Unix()
	if s.store != nil {
		if docID, ok, err := s.store.Get(ctx, cache.URLDocKey(normalized)); err == nil && ok {
			doc, err := s.documents.Get(ctx, docID)
			if err == nil && doc.Status != model.StatusError && doc.Ctime >= cutoff {
				return doc
			}
		}
	}
	doc, err := s.documents.FindRecentByURL(ctx, normalized, cutoff)
	if err != nil {
		return nil
	}
	return doc
}

func (s *DocumentService) cacheURLDoc(ctx context.Context, normalized string, docID string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, cache.URLDocKey(normalized), docID, cache.TTLURLDoc); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache url mapping", zap.Error(err))
	}
}

func (s *DocumentService) cachedSummary(ctx context.Context, docID string) *model.Summary {
	if s.store == nil {
		return nil
	}
	raw, ok, err := s.store.Get(ctx, cache.SummaryKey(docID))
	if err != nil || !ok {
		return nil
	}
	var summary model.Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *DocumentService) cacheSummary(ctx context.Context, docID string, summary *model.Summary) {
	if s.store == nil {
		return
	}
	blob, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, cache.SummaryKey(docID), string(blob), cache.TTLSummary); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache summary", zap.Error(err))
	}
}

func validateURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: url is required", appErr.ErrInvalid)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: malformed url", appErr.ErrInvalid)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: url must be http or https", appErr.ErrInvalid)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: url has no host", appErr.ErrInvalid)
	}
	return parsed.String(), nil
}

// DetectSource maps a URL host onto the ingestion source.
func DetectSource(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.SourceWebpage
	}
	host := strings.ToLower(parsed.Hostname())
	switch {
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return model.SourceYouTube
	case host == "twitch.tv" || strings.HasSuffix(host, ".twitch.tv"):
		return model.SourceTwitch
	default:
		return model.SourceWebpage
	}
}
