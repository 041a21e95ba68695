package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/webrecap/webrecap/internal/cache"
	"github.com/webrecap/webrecap/internal/config"
	"github.com/webrecap/webrecap/internal/fetch"
	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/score"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc reports pipeline stage transitions while an extraction runs.
type ProgressFunc func(ctx context.Context, stage string)

// Extractor runs all strategies for a URL concurrently, scores the
// candidates, and grows the prototype corpus from the winner.
type Extractor struct {
	fetcher   *fetch.Fetcher
	jsonAPI   *JSONAPIFetcher
	videos    *VideoFetcher
	scorer    *score.Scorer
	collector *score.Collector
	store     cache.Store
	timeout   time.Duration
}

func New(
	cfg config.FetchConfig,
	fetcher *fetch.Fetcher,
	scorer *score.Scorer,
	collector *score.Collector,
	store cache.Store,
) *Extractor {
	return &Extractor{
		fetcher:   fetcher,
		jsonAPI:   NewJSONAPIFetcher(),
		videos:    NewVideoFetcher(),
		scorer:    scorer,
		collector: collector,
		store:     store,
		timeout:   time.Duration(cfg.ExtractionTimeout) * time.Second,
	}
}

// Extract dispatches by document source. Video URLs that carry no
// recognizable video id degrade to plain web extraction.
func (e *Extractor) Extract(ctx context.Context, rawURL string, source string, progress ProgressFunc) (*model.Candidate, error) {
	switch source {
	case model.SourceYouTube:
		candidate, err := e.videos.YouTube(ctx, rawURL)
		if err != nil {
			logutil.GetLogger(ctx).Warn("youtube extraction failed, falling back to web",
				zap.String("url", rawURL), zap.Error(err))
		}
		if candidate != nil {
			return candidate, nil
		}
		return e.Web(ctx, rawURL, progress)
	case model.SourceTwitch:
		candidate, err := e.videos.Twitch(ctx, rawURL)
		if err != nil {
			logutil.GetLogger(ctx).Warn("twitch extraction failed, falling back to web",
				zap.String("url", rawURL), zap.Error(err))
		}
		if candidate != nil {
			return candidate, nil
		}
		return e.Web(ctx, rawURL, progress)
	default:
		return e.Web(ctx, rawURL, progress)
	}
}

// Web runs the four page strategies and picks the best candidate. Results
// are cached by URL so resubmissions inside the TTL skip the whole fan-out.
func (e *Extractor) Web(ctx context.Context, rawURL string, progress ProgressFunc) (*model.Candidate, error) {
	if cached := e.cachedCandidate(ctx, rawURL); cached != nil {
		logutil.GetLogger(ctx).Info("using cached extraction", zap.String("url", rawURL))
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if progress != nil {
		progress(ctx, model.StageFetchingHTML)
	}
	html, err := e.fetcher.HTML(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", appErr.ErrExtraction, err)
	}

	candidates := e.fanOut(ctx, doc, html, rawURL)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: all strategies failed for %s", appErr.ErrExtraction, rawURL)
	}

	if progress != nil {
		progress(ctx, model.StageCleaning)
	}
	best, err := e.scorer.SelectBest(ctx, candidates)
	if err != nil {
		return nil, err
	}

	e.collector.Save(ctx, best.Content)
	e.cacheCandidate(ctx, rawURL, best)
	return best, nil
}

// fanOut runs every strategy concurrently. A strategy failure is isolated:
// it logs, contributes nothing, and never cancels its siblings.
func (e *Extractor) fanOut(ctx context.Context, doc *goquery.Document, html string, rawURL string) []*model.Candidate {
	var mu sync.Mutex
	var candidates []*model.Candidate
	add := func(candidate *model.Candidate, err error, strategy string) {
		if err != nil {
			logutil.GetLogger(ctx).Warn("extraction strategy failed",
				zap.String("strategy", strategy),
				zap.String("url", rawURL),
				zap.Error(err))
			return
		}
		if candidate == nil {
			return
		}
		mu.Lock()
		candidates = append(candidates, candidate)
		mu.Unlock()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		candidate, err := e.jsonAPI.Fetch(groupCtx, rawURL)
		add(candidate, err, model.StrategyJSONAPI)
		return nil
	})
	group.Go(func() error {
		candidate, err := StructuredData(groupCtx, doc, rawURL)
		add(candidate, err, model.StrategyStructuredData)
		return nil
	})
	group.Go(func() error {
		candidate, err := Readability(groupCtx, html, rawURL)
		add(candidate, err, model.StrategyReadability)
		return nil
	})
	group.Go(func() error {
		siteType := DetectSiteType(rawURL, doc)
		logutil.GetLogger(groupCtx).Info("detected site type",
			zap.String("url", rawURL),
			zap.String("site_type", siteType))
		candidate, err := HTMLParsing(groupCtx, doc, rawURL, ConfigForSite(siteType))
		add(candidate, err, model.StrategyHTMLParsing)
		return nil
	})
	_ = group.Wait()
	return candidates
}

func (e *Extractor) cachedCandidate(ctx context.Context, rawURL string) *model.Candidate {
	if e.store == nil {
		return nil
	}
	raw, ok, err := e.store.Get(ctx, cache.WebContentKey(rawURL))
	if err != nil || !ok {
		return nil
	}
	var candidate model.Candidate
	if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
		return nil
	}
	return &candidate
}

func (e *Extractor) cacheCandidate(ctx context.Context, rawURL string, candidate *model.Candidate) {
	if e.store == nil {
		return
	}
	blob, err := json.Marshal(candidate)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, cache.WebContentKey(rawURL), string(blob), cache.TTLWebContent); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache extraction", zap.Error(err))
	}
}
