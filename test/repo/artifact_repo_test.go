package repo_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/webrecap/webrecap/test/testutil"
)

func TestArtifactRepoContentAddressing(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	artifacts := repo.NewArtifactRepo(db)
	hash := uuid.NewString()
	art := &model.Artifact{
		ID:    uuid.NewString(),
		Kind:  model.ArtifactKindText,
		URI:   "file:///tmp/" + hash + ".txt",
		Hash:  hash,
		Ctime: time.Now().Unix(),
	}
	require.NoError(t, artifacts.Create(context.Background(), art))

	byHash, err := artifacts.GetByHash(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, art.ID, byHash.ID)
	require.Equal(t, art.URI, byHash.URI)

	byID, err := artifacts.Get(context.Background(), art.ID)
	require.NoError(t, err)
	require.Equal(t, hash, byID.Hash)

	_, err = artifacts.GetByHash(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSummaryRepoLatestByDocument(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	txns := repo.NewTransactionRepo(db)
	summaries := repo.NewSummaryRepo(db)

	doc := newDoc(model.StatusCompleted)
	require.NoError(t, docs.Create(context.Background(), doc))

	_, err := summaries.LatestByDocument(context.Background(), doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	first := &model.Transaction{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Status:     model.StatusCompleted,
		Ctime:      time.Now().Unix() - 100,
	}
	require.NoError(t, txns.Create(context.Background(), first))
	require.NoError(t, summaries.Create(context.Background(), &model.Summary{
		ID:            uuid.NewString(),
		Type:          model.SummaryTypeTLDR,
		Content:       json.RawMessage(`{"tldr":"old"}`),
		TransactionID: first.ID,
		Ctime:         time.Now().Unix() - 100,
	}))

	second := &model.Transaction{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Status:     model.StatusCompleted,
		Ctime:      time.Now().Unix(),
	}
	require.NoError(t, txns.Create(context.Background(), second))
	require.NoError(t, summaries.Create(context.Background(), &model.Summary{
		ID:            uuid.NewString(),
		Type:          model.SummaryTypeTLDR,
		Content:       json.RawMessage(`{"tldr":"new"}`),
		TransactionID: second.ID,
		Ctime:         time.Now().Unix(),
	}))

	latest, err := summaries.LatestByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.JSONEq(t, `{"tldr":"new"}`, string(latest.Content))
	require.Equal(t, second.ID, latest.TransactionID)
}

func TestPrototypeRepoPruneOldest(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	protos := repo.NewPrototypeRepo(db)
	embedding := make([]float32, 384)
	embedding[0] = 1

	before, err := protos.Count(context.Background())
	require.NoError(t, err)

	base := time.Now().Unix()
	for i := 0; i < 4; i++ {
		require.NoError(t, protos.Create(context.Background(), &model.Prototype{
			ID:        uuid.NewString(),
			Text:      "prototype reference text " + uuid.NewString(),
			Embedding: embedding,
			Ctime:     base + int64(i),
		}))
	}

	sim, err := protos.MaxSimilarity(context.Background(), embedding)
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim, 0.001)

	keep := before + 2
	_, err = protos.PruneOldest(context.Background(), keep)
	require.NoError(t, err)

	after, err := protos.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, keep, after)
}

func TestEmbeddingCacheRepoRoundtrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewEmbeddingCacheRepo(db)
	embedding := make([]float32, 384)
	embedding[1] = 0.5
	hash := uuid.NewString()

	_, found, err := cache.Get(context.Background(), "test-model", "retrieval", hash)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.Save(context.Background(), &model.EmbeddingCache{
		ModelName:   "test-model",
		TaskType:    "retrieval",
		ContentHash: hash,
		Embedding:   embedding,
		Ctime:       time.Now().Unix(),
	}))

	got, found, err := cache.Get(context.Background(), "test-model", "retrieval", hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 384)
	require.InDelta(t, 0.5, got[1], 0.0001)

	deleted, err := cache.DeleteBefore(context.Background(), time.Now().Unix()+10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))
}
