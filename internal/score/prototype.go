package score

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webrecap/webrecap/internal/ai"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Index is the prototype vector store used during scoring.
type Index interface {
	MaxSimilarity(ctx context.Context, embedding []float32) (float64, error)
	Add(ctx context.Context, proto *model.Prototype) error
}

// PgIndex backs the index with the prototypes table.
type PgIndex struct {
	repo *repo.PrototypeRepo
}

func NewPgIndex(r *repo.PrototypeRepo) *PgIndex {
	return &PgIndex{repo: r}
}

func (i *PgIndex) MaxSimilarity(ctx context.Context, embedding []float32) (float64, error) {
	return i.repo.MaxSimilarity(ctx, embedding)
}

func (i *PgIndex) Add(ctx context.Context, proto *model.Prototype) error {
	return i.repo.Create(ctx, proto)
}

// MemIndex is an in-memory index for tests and embedded runs.
type MemIndex struct {
	mu     sync.RWMutex
	protos []model.Prototype
}

func NewMemIndex() *MemIndex {
	return &MemIndex{}
}

func (i *MemIndex) MaxSimilarity(ctx context.Context, embedding []float32) (float64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	best := 0.0
	for _, proto := range i.protos {
		if sim := Cosine(embedding, proto.Embedding); sim > best {
			best = sim
		}
	}
	return best, nil
}

func (i *MemIndex) Add(ctx context.Context, proto *model.Prototype) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.protos = append(i.protos, *proto)
	return nil
}

// Collector grows the prototype corpus from winning extractions. Near
// duplicates of an existing prototype are skipped so the corpus stays
// diverse.
type Collector struct {
	embedder  ai.IEmbedder
	index     Index
	maxLength int
	threshold float64
}

func NewCollector(embedder ai.IEmbedder, index Index, maxLength int, threshold float64) *Collector {
	return &Collector{
		embedder:  embedder,
		index:     index,
		maxLength: maxLength,
		threshold: threshold,
	}
}

// Save embeds the text and stores it unless a prototype at or above the
// duplicate threshold already exists. Failures are logged, never fatal; the
// corpus is an accelerator, not a dependency.
func (c *Collector) Save(ctx context.Context, text string) {
	trimmed := strings.TrimSpace(cleanForEmbedding(text))
	if trimmed == "" {
		return
	}
	if len(trimmed) > c.maxLength {
		trimmed = trimmed[:c.maxLength]
	}
	vec, err := c.embedder.Embed(ctx, trimmed, embedTaskType)
	if err != nil {
		logutil.GetLogger(ctx).Warn("prototype embedding failed", zap.Error(err))
		return
	}
	similarity, err := c.index.MaxSimilarity(ctx, vec)
	if err != nil {
		logutil.GetLogger(ctx).Warn("prototype similarity lookup failed", zap.Error(err))
		return
	}
	if similarity >= c.threshold {
		logutil.GetLogger(ctx).Info("skipping prototype save, near duplicate exists",
			zap.Float64("similarity", similarity))
		return
	}
	proto := &model.Prototype{
		ID:        uuid.NewString(),
		Text:      trimmed,
		Embedding: vec,
		Ctime:     time.Now().Unix(),
	}
	if err := c.index.Add(ctx, proto); err != nil {
		logutil.GetLogger(ctx).Warn("prototype save failed", zap.Error(err))
		return
	}
	logutil.GetLogger(ctx).Info("new prototype saved", zap.String("id", proto.ID))
}
