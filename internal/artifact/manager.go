package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/webrecap/webrecap/internal/cache"
	"github.com/webrecap/webrecap/internal/filestore"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/pkg/dbutil"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/webrecap/webrecap/internal/repo"
)

// Manager stores cleaned content as content-addressed artifacts. Two
// documents with byte-identical cleaned text share one artifact row and one
// stored object.
type Manager struct {
	artifacts *repo.ArtifactRepo
	documents *repo.DocumentRepo
	store     filestore.Store
}

func NewManager(artifacts *repo.ArtifactRepo, documents *repo.DocumentRepo, store filestore.Store) *Manager {
	return &Manager{artifacts: artifacts, documents: documents, store: store}
}

// SaveCleaned persists the cleaned text, reusing an existing artifact when
// the hash already exists, and links the artifact to the document.
func (m *Manager) SaveCleaned(ctx context.Context, docID string, content string) (*model.Artifact, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty cleaned content", appErr.ErrInvalid)
	}
	hash := cache.HashText(content)

	art, err := m.artifacts.GetByHash(ctx, hash)
	if err != nil && !appErr.IsNotFound(err) {
		return nil, err
	}
	if art == nil {
		art, err = m.create(ctx, hash, content)
		if err != nil {
			return nil, err
		}
	}
	if err := m.documents.SetArtifact(ctx, docID, art.ID); err != nil {
		return nil, err
	}
	return art, nil
}

func (m *Manager) create(ctx context.Context, hash string, content string) (*model.Artifact, error) {
	key := hash + ".txt"
	reader := newMemReader(content)
	if err := m.store.Save(ctx, key, reader, int64(len(content))); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	art := &model.Artifact{
		ID:    uuid.NewString(),
		Kind:  model.ArtifactKindText,
		URI:   m.store.URL(key),
		Hash:  hash,
		Ctime: time.Now().Unix(),
	}
	if err := m.artifacts.Create(ctx, art); err != nil {
		if dbutil.IsConflict(err) {
			// another worker stored the same content first
			return m.artifacts.GetByHash(ctx, hash)
		}
		return nil, err
	}
	return art, nil
}

func (m *Manager) Read(ctx context.Context, art *model.Artifact) (string, error) {
	rc, err := m.store.Open(ctx, art.Hash+".txt")
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type memReader struct {
	*strings.Reader
}

func newMemReader(content string) filestore.ReadSeekCloser {
	return &memReader{Reader: strings.NewReader(content)}
}

func (r *memReader) Close() error {
	return nil
}
