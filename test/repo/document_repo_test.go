package repo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/repo"
	"github.com/webrecap/webrecap/test/testutil"
)

func newDoc(status string) *model.Document {
	return &model.Document{
		ID:     uuid.NewString(),
		URL:    "https://example.com/" + uuid.NewString(),
		Source: model.SourceWebpage,
		Status: status,
		Ctime:  time.Now().Unix(),
	}
}

func TestDocumentRepoCreateAndGet(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	doc := newDoc(model.StatusIngested)
	doc.OwnerID = "user-1"
	require.NoError(t, docs.Create(context.Background(), doc))

	fetched, err := docs.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.URL, fetched.URL)
	require.Equal(t, model.SourceWebpage, fetched.Source)
	require.Equal(t, model.StatusIngested, fetched.Status)
	require.Equal(t, "user-1", fetched.OwnerID)

	_, err = docs.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentRepoClaimNext_EachDocClaimedOnce(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	mine := make(map[string]bool)
	for i := 0; i < 5; i++ {
		doc := newDoc(model.StatusQueued)
		require.NoError(t, docs.Create(context.Background(), doc))
		mine[doc.ID] = true
	}

	var mu sync.Mutex
	claims := make(map[string]int)
	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				doc, err := docs.ClaimNext(context.Background(), model.StatusQueued, model.StatusProcessing)
				if errors.Is(err, appErr.ErrNotFound) {
					return
				}
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				claims[doc.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for id := range mine {
		require.Equal(t, 1, claims[id], "document %s claimed %d times", id, claims[id])
		fetched, err := docs.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, model.StatusProcessing, fetched.Status)
	}
}

func TestDocumentRepoUpdateStatusIf(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	doc := newDoc(model.StatusIngested)
	require.NoError(t, docs.Create(context.Background(), doc))

	moved, err := docs.UpdateStatusIf(context.Background(), doc.ID, model.StatusIngested, model.StatusProcessing)
	require.NoError(t, err)
	require.True(t, moved)

	moved, err = docs.UpdateStatusIf(context.Background(), doc.ID, model.StatusIngested, model.StatusProcessing)
	require.NoError(t, err)
	require.False(t, moved)
}

func TestDocumentRepoFindRecentByURL(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	now := time.Now().Unix()

	failed := newDoc(model.StatusError)
	require.NoError(t, docs.Create(context.Background(), failed))

	_, err := docs.FindRecentByURL(context.Background(), failed.URL, now-3600)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	done := newDoc(model.StatusCompleted)
	require.NoError(t, docs.Create(context.Background(), done))

	found, err := docs.FindRecentByURL(context.Background(), done.URL, now-3600)
	require.NoError(t, err)
	require.Equal(t, done.ID, found.ID)

	_, err = docs.FindRecentByURL(context.Background(), done.URL, now+3600)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentRepoDeleteStaleBefore(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	docs := repo.NewDocumentRepo(db)
	oldFailed := newDoc(model.StatusError)
	oldFailed.Ctime = time.Now().Add(-90 * 24 * time.Hour).Unix()
	require.NoError(t, docs.Create(context.Background(), oldFailed))

	oldStuck := newDoc(model.StatusProcessing)
	oldStuck.Ctime = time.Now().Add(-90 * 24 * time.Hour).Unix()
	require.NoError(t, docs.Create(context.Background(), oldStuck))

	oldDone := newDoc(model.StatusCompleted)
	oldDone.Ctime = time.Now().Add(-90 * 24 * time.Hour).Unix()
	require.NoError(t, docs.Create(context.Background(), oldDone))

	freshFailed := newDoc(model.StatusError)
	require.NoError(t, docs.Create(context.Background(), freshFailed))

	deleted, err := docs.DeleteStaleBefore(context.Background(), time.Now().Add(-30*24*time.Hour).Unix())
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(2))

	_, err = docs.Get(context.Background(), oldFailed.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = docs.Get(context.Background(), oldStuck.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = docs.Get(context.Background(), oldDone.ID)
	require.NoError(t, err)

	_, err = docs.Get(context.Background(), freshFailed.ID)
	require.NoError(t, err)
}
