package score

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/webrecap/webrecap/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const embedTaskType = "SEMANTIC_SIMILARITY"

var (
	roleTagRe = regexp.MustCompile(`\[TITLE\]|\[POST\]|\[ARTICLE\]|\[COMMENT\]|\[TRANSCRIPT\]`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
	spaceRe   = regexp.MustCompile(`\s+`)

	articleRe = regexp.MustCompile(`(?s)\[ARTICLE\](.*?)(\[|$)`)
	postRe    = regexp.MustCompile(`(?s)\[POST\](.*?)(\[COMMENT\]|$)`)
)

// dynamicScore compares the candidate's main content against reference text
// built from its own metadata. An extraction that drifted into navigation or
// comments diverges from its title and description.
func (s *Scorer) dynamicScore(ctx context.Context, candidate *model.Candidate) float64 {
	refText := referenceText(candidate)
	candText := mainContent(candidate.Content)
	if strings.TrimSpace(refText) == "" || strings.TrimSpace(candText) == "" {
		return 0
	}
	refVec := s.embedText(ctx, refText)
	candVec := s.embedText(ctx, candText)
	return Cosine(candVec, refVec)
}

func (s *Scorer) prototypeScore(ctx context.Context, candidate *model.Candidate) float64 {
	if s.index == nil {
		return 0
	}
	vec := s.candidateEmbedding(ctx, candidate)
	if vec == nil {
		return 0
	}
	similarity, err := s.index.MaxSimilarity(ctx, vec)
	if err != nil {
		logutil.GetLogger(ctx).Warn("prototype lookup failed", zap.Error(err))
		return 0
	}
	return similarity
}

// centroidScore rewards candidates that agree with the consensus of all
// strategies for the same page. With fewer than two usable vectors there is
// no consensus, so the score is neutral.
func (s *Scorer) centroidScore(ctx context.Context, candidate *model.Candidate, all []*model.Candidate) float64 {
	if len(all) < 2 {
		return 0.5
	}
	candVec := s.candidateEmbedding(ctx, candidate)
	if candVec == nil {
		return 0
	}
	var valid [][]float32
	for _, other := range all {
		if vec := s.candidateEmbedding(ctx, other); vec != nil {
			valid = append(valid, vec)
		}
	}
	if len(valid) < 2 {
		return 0.5
	}
	dim := len(valid[0])
	centroid := make([]float32, dim)
	for _, vec := range valid {
		for i := 0; i < dim && i < len(vec); i++ {
			centroid[i] += vec[i]
		}
	}
	for i := range centroid {
		centroid[i] /= float32(len(valid))
	}
	return Cosine(candVec, centroid)
}

func (s *Scorer) candidateEmbedding(ctx context.Context, candidate *model.Candidate) []float32 {
	text := strings.TrimSpace(candidate.Metadata.Title + " " + mainContent(candidate.Content))
	if text == "" {
		return nil
	}
	return s.embedText(ctx, text)
}

// embedText embeds through the shared LRU; a failed embedding returns nil
// and degrades that sub-score to zero rather than failing the pipeline.
func (s *Scorer) embedText(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cacheKey := text
	if len(text) > 100 {
		cacheKey = fmt.Sprintf("%s_%d", text[:100], len(text))
	}
	if cached, ok := s.embedCache.Get(cacheKey); ok {
		return cached
	}
	clean := cleanForEmbedding(text)
	if len(clean) > s.cfg.MaxEmbeddingLength {
		clean = clean[:s.cfg.MaxEmbeddingLength]
	}
	vec, err := s.embedder.Embed(ctx, clean, embedTaskType)
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding failed",
			zap.Int("text_length", len(text)),
			zap.Error(err))
		return nil
	}
	s.embedCache.Add(cacheKey, vec)
	return vec
}

func cleanForEmbedding(text string) string {
	text = roleTagRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// referenceText builds the comparison target from candidate metadata: title,
// URL path words, and a description prefix, capped at 300 chars.
func referenceText(candidate *model.Candidate) string {
	var parts []string
	if candidate.Metadata.Title != "" {
		parts = append(parts, candidate.Metadata.Title)
	}
	if candidate.Metadata.URL != "" {
		if u, err := url.Parse(candidate.Metadata.URL); err == nil {
			var pathWords []string
			for _, part := range strings.Split(u.Path, "/") {
				if len(part) > 2 {
					pathWords = append(pathWords, part)
				}
			}
			if len(pathWords) > 0 {
				parts = append(parts, strings.Join(pathWords, " "))
			}
		}
	}
	if desc := candidate.Metadata.Description; desc != "" {
		if len(desc) > 200 {
			desc = desc[:200]
		}
		parts = append(parts, desc)
	}
	joined := strings.Join(parts, " ")
	if len(joined) > 300 {
		joined = joined[:300]
	}
	return joined
}

// mainContent pulls the most article-like slice of the flattened content:
// tagged article or post section first, then the first long paragraph, then
// a plain prefix.
func mainContent(content string) string {
	if m := articleRe.FindStringSubmatch(content); m != nil {
		if extracted := strings.TrimSpace(m[1]); len(extracted) > 50 {
			return cleanForEmbedding(extracted)
		}
	}
	if m := postRe.FindStringSubmatch(content); m != nil {
		if extracted := strings.TrimSpace(m[1]); len(extracted) > 50 {
			return cleanForEmbedding(extracted)
		}
	}
	for _, paragraph := range paragraphRe.Split(content, -1) {
		if len(strings.TrimSpace(paragraph)) > 100 {
			return cleanForEmbedding(paragraph)
		}
	}
	if len(content) > 600 {
		content = content[:600]
	}
	return cleanForEmbedding(content)
}

// Cosine is the cosine similarity of two vectors, 0 when either is empty or
// the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
