package score

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webrecap/webrecap/internal/ai"
	"github.com/webrecap/webrecap/internal/config"
	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Scorer ranks extraction candidates with a weighted blend of four signals:
// content heuristics, similarity to reference text built from metadata,
// similarity to known-good prototypes, and agreement with the other
// candidates for the same page.
type Scorer struct {
	heuristicWeight float64
	dynamicWeight   float64
	prototypeWeight float64
	centroidWeight  float64

	embedder ai.IEmbedder
	index    Index
	cfg      config.ScoringConfig

	embedCache *expirable.LRU[string, []float32]
}

func NewScorer(cfg config.ScoringConfig, embedder ai.IEmbedder, index Index) *Scorer {
	// weights are normalized so callers can tune them without keeping
	// the sum at exactly 1
	sum := cfg.HeuristicWeight + cfg.DynamicWeight + cfg.PrototypeWeight + cfg.CentroidWeight
	if sum == 0 {
		sum = 1
	}
	return &Scorer{
		heuristicWeight: cfg.HeuristicWeight / sum,
		dynamicWeight:   cfg.DynamicWeight / sum,
		prototypeWeight: cfg.PrototypeWeight / sum,
		centroidWeight:  cfg.CentroidWeight / sum,
		embedder:        embedder,
		index:           index,
		cfg:             cfg,
		embedCache:      expirable.NewLRU[string, []float32](cfg.EmbedCacheSize, nil, 10*time.Minute),
	}
}

// Score returns the blended score in [0, 1]. Candidates below the minimum
// content length score zero outright.
func (s *Scorer) Score(ctx context.Context, candidate *model.Candidate, all []*model.Candidate) float64 {
	if candidate == nil || len(candidate.Content) < s.cfg.MinContentLength {
		return 0
	}
	hScore := s.heuristicScore(candidate)
	dScore := s.dynamicScore(ctx, candidate)
	pScore := s.prototypeScore(ctx, candidate)
	cScore := s.centroidScore(ctx, candidate, all)

	final := s.heuristicWeight*hScore +
		s.dynamicWeight*dScore +
		s.prototypeWeight*pScore +
		s.centroidWeight*cScore

	logutil.GetLogger(ctx).Debug("score breakdown",
		zap.String("source", candidate.Source),
		zap.Float64("heuristic", hScore),
		zap.Float64("dynamic", dScore),
		zap.Float64("prototype", pScore),
		zap.Float64("centroid", cScore),
		zap.Float64("final", final),
		zap.Int("content_length", len(candidate.Content)))
	return final
}

// SelectBest scores every candidate and returns the winner. A direct API
// extraction beats scored strategies outright, since structured APIs do not
// misparse.
func (s *Scorer) SelectBest(ctx context.Context, candidates []*model.Candidate) (*model.Candidate, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates to score", appErr.ErrScoring)
	}
	type scored struct {
		candidate *model.Candidate
		score     float64
	}
	items := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, scored{
			candidate: candidate,
			score:     s.Score(ctx, candidate, candidates),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		iAPI := items[i].candidate.Source == model.StrategyJSONAPI
		jAPI := items[j].candidate.Source == model.StrategyJSONAPI
		if iAPI != jAPI {
			return iAPI
		}
		return items[i].score > items[j].score
	})
	best := items[0]
	if best.score == 0 && best.candidate.Source != model.StrategyJSONAPI {
		return nil, fmt.Errorf("%w: no candidate passed scoring", appErr.ErrScoring)
	}
	return best.candidate, nil
}
