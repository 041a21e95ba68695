package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/pkg/dbutil"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
)

type ArtifactRepo struct {
	db *sql.DB
}

func NewArtifactRepo(db *sql.DB) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

func (r *ArtifactRepo) Create(ctx context.Context, art *model.Artifact) error {
	data := map[string]interface{}{
		"id":    art.ID,
		"kind":  art.Kind,
		"uri":   art.URI,
		"hash":  art.Hash,
		"ctime": art.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("artifacts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ArtifactRepo) Get(ctx context.Context, artifactID string) (*model.Artifact, error) {
	const query = `
		SELECT id, kind, uri, hash, ctime FROM artifacts WHERE id = $1
	`
	return scanArtifact(r.db.QueryRowContext(ctx, query, artifactID))
}

// GetByHash is the content-addressing lookup: the same cleaned text always
// maps to the same artifact row.
func (r *ArtifactRepo) GetByHash(ctx context.Context, hash string) (*model.Artifact, error) {
	const query = `
		SELECT id, kind, uri, hash, ctime FROM artifacts WHERE hash = $1
	`
	return scanArtifact(r.db.QueryRowContext(ctx, query, hash))
}

func scanArtifact(row *sql.Row) (*model.Artifact, error) {
	var art model.Artifact
	if err := row.Scan(&art.ID, &art.Kind, &art.URI, &art.Hash, &art.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &art, nil
}
