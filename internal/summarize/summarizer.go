package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/webrecap/webrecap/internal/ai"
	"github.com/webrecap/webrecap/internal/cache"
	"github.com/webrecap/webrecap/internal/config"
	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const chunkPrompt = `You are an expert assistant that summarizes arbitrary webpage content.

1. Infer the content type: one of ["article", "social_post", "video", "shopping", "stream", "structured_data", "generic"].
2. Produce a JSON summary including a "content_type" field and type-specific fields:

General fields:
- "tldr": one-sentence TLDR
- "bullets": ["key points", "insights"]
- "key_sections": [{"heading": "section", "summary": "details"}]
- "content_type": detected type

Social post content: topic, notable_comments, sentiment
Video content: topic, key_timestamps, duration_estimate
Shopping/Product content: product_name, price_range, key_features, ratings
Articles: page_type, topic, author, publication_date
Stream content: topic, chat_highlights, streamer

Respond with the JSON object only.

Summarize this content:
`

const mergePrompt = `You are an expert assistant that merges multiple partial summaries into a coherent final summary.
Preserve all type-specific fields (like topic, key_timestamps, notable_comments, sentiment, product_name, price_range, key_features, etc.).
Merge overlapping info. If some chunks detect different content types, pick the most consistent one.
Respond with the JSON object only.

Partial summaries:
`

// Summarizer turns cleaned document content into a structured JSON summary,
// chunking large inputs and merging the partial results hierarchically.
type Summarizer struct {
	gen       ai.IGenerator
	store     cache.Store
	modelName string
	cfg       config.SummarizerConfig
}

func New(gen ai.IGenerator, modelName string, store cache.Store, cfg config.SummarizerConfig) *Summarizer {
	return &Summarizer{gen: gen, store: store, modelName: modelName, cfg: cfg}
}

// Summarize produces the final summary JSON for content. Full results and
// per-chunk partials are cached keyed by content hash plus model parameters.
func (s *Summarizer) Summarize(ctx context.Context, content string) (json.RawMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", appErr.ErrInvalid)
	}
	content = truncate(content)

	fullKey := cache.ContentKey("ai_summary", content, s.modelName, s.cfg.Temperature, s.cfg.ChunkSize)
	if cached, ok := s.cachedJSON(ctx, fullKey); ok {
		logutil.GetLogger(ctx).Info("using cached summary")
		return cached, nil
	}

	chunks := splitChunks(content, s.cfg.ChunkSize)
	partials, err := s.summarizeChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(partials) == 0 {
		return nil, fmt.Errorf("all %d chunks failed to summarize", len(chunks))
	}

	final, err := s.mergeAll(ctx, partials)
	if err != nil {
		return nil, err
	}
	if _, err := parseSummary(final); err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, fullKey, final, cache.TTLAISummary)
	return final, nil
}

// summarizeChunks summarizes every chunk concurrently. A chunk failure
// contributes nothing unless it is an auth failure, which aborts the run.
func (s *Summarizer) summarizeChunks(ctx context.Context, chunks []string) ([]json.RawMessage, error) {
	results := make([]json.RawMessage, len(chunks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		group.Go(func() error {
			partial, err := s.summarizeChunk(groupCtx, chunk)
			if err != nil {
				if errors.Is(err, appErr.ErrAuth) {
					return err
				}
				logutil.GetLogger(groupCtx).Warn("chunk summarization failed",
					zap.Int("chunk", i), zap.Error(err))
				return nil
			}
			results[i] = partial
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	var partials []json.RawMessage
	for _, r := range results {
		if r != nil {
			partials = append(partials, r)
		}
	}
	return partials, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, chunk string) (json.RawMessage, error) {
	key := cache.ContentKey("ai_chunk", chunk, s.modelName, s.cfg.Temperature, s.cfg.ChunkSize)
	if cached, ok := s.cachedJSON(ctx, key); ok {
		return cached, nil
	}
	raw, err := s.generateWithRetry(ctx, chunkPrompt+chunk)
	if err != nil {
		return nil, err
	}
	partial, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, key, partial, cache.TTLAIChunk)
	return partial, nil
}

// mergeAll reduces partials to a single summary, merging in batches so very
// long documents converge over several rounds instead of one giant prompt.
func (s *Summarizer) mergeAll(ctx context.Context, partials []json.RawMessage) (json.RawMessage, error) {
	batchSize := s.cfg.MergeBatch
	if batchSize < 2 {
		batchSize = 2
	}
	for len(partials) > 1 {
		var next []json.RawMessage
		for start := 0; start < len(partials); start += batchSize {
			end := start + batchSize
			if end > len(partials) {
				end = len(partials)
			}
			batch := partials[start:end]
			if len(batch) == 1 {
				next = append(next, batch[0])
				continue
			}
			merged, err := s.mergeBatch(ctx, batch)
			if err != nil {
				return nil, fmt.Errorf("merge summaries: %w", err)
			}
			next = append(next, merged)
		}
		partials = next
	}
	return partials[0], nil
}

func (s *Summarizer) mergeBatch(ctx context.Context, batch []json.RawMessage) (json.RawMessage, error) {
	blob, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, err
	}
	raw, err := s.generateWithRetry(ctx, mergePrompt+string(blob))
	if err != nil {
		return nil, err
	}
	return extractJSON(raw)
}

// generateWithRetry calls the model with exponential backoff on rate limits
// and transient upstream failures. Auth failures return immediately.
func (s *Summarizer) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			logutil.GetLogger(ctx).Info("retrying summarization call",
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
		out, err := s.gen.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !appErr.Retryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("summarization gave up after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt-1)) * 2 * time.Second
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

func (s *Summarizer) cachedJSON(ctx context.Context, key string) (json.RawMessage, bool) {
	if s.store == nil {
		return nil, false
	}
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok || !json.Valid([]byte(raw)) {
		return nil, false
	}
	return json.RawMessage(raw), true
}

func (s *Summarizer) cacheJSON(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, key, string(value), ttl); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache summary result", zap.Error(err))
	}
}

// extractJSON pulls the JSON object out of a model response, tolerating
// markdown code fences and stray prose around the object.
func extractJSON(raw string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("model output is not a JSON object")
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return json.RawMessage(candidate), nil
}

func parseSummary(raw json.RawMessage) (*model.SummaryContent, error) {
	var parsed model.SummaryContent
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &parsed, nil
}
