package repo

import (
	"context"
	"database/sql"

	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (id, url, source, status, owner_id, artifact_id, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.URL,
		doc.Source,
		doc.Status,
		nullIfEmpty(doc.OwnerID),
		nullIfEmpty(doc.ArtifactID),
		doc.Ctime,
	)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, docID string) (*model.Document, error) {
	const query = `
		SELECT id, url, source, status, COALESCE(owner_id, ''), COALESCE(artifact_id, ''), ctime
		FROM documents
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, docID)
	return scanDocument(row)
}

// ClaimNext atomically claims the oldest document in fromStatus and moves it
// to toStatus. FOR UPDATE SKIP LOCKED keeps concurrent workers off the same
// row; the conditional UPDATE guards against a status change that slipped in
// between restarts. Returns ErrNotFound when the queue is empty.
func (r *DocumentRepo) ClaimNext(ctx context.Context, fromStatus, toStatus string) (*model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const selectQuery = `
		SELECT id, url, source, status, COALESCE(owner_id, ''), COALESCE(artifact_id, ''), ctime
		FROM documents
		WHERE status = $1
		ORDER BY ctime
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	doc, err := scanDocument(tx.QueryRowContext(ctx, selectQuery, fromStatus))
	if err != nil {
		return nil, err
	}

	const updateQuery = `
		UPDATE documents SET status = $1 WHERE id = $2 AND status = $3
	`
	res, err := tx.ExecContext(ctx, updateQuery, toStatus, doc.ID, fromStatus)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, appErr.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	doc.Status = toStatus
	return doc, nil
}

func (r *DocumentRepo) UpdateStatusIf(ctx context.Context, docID, fromStatus, toStatus string) (bool, error) {
	const query = `
		UPDATE documents SET status = $1 WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, toStatus, docID, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *DocumentRepo) SetStatus(ctx context.Context, docID, status string) error {
	const query = `UPDATE documents SET status = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, docID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) SetArtifact(ctx context.Context, docID, artifactID string) error {
	const query = `UPDATE documents SET artifact_id = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, artifactID, docID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// FindRecentByURL returns the newest non-failed document for the URL created
// at or after cutoff, so repeat submissions reuse prior work.
func (r *DocumentRepo) FindRecentByURL(ctx context.Context, url string, cutoff int64) (*model.Document, error) {
	const query = `
		SELECT id, url, source, status, COALESCE(owner_id, ''), COALESCE(artifact_id, ''), ctime
		FROM documents
		WHERE url = $1 AND ctime >= $2 AND status != $3
		ORDER BY ctime DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, url, cutoff, model.StatusError)
	return scanDocument(row)
}

// DeleteStaleBefore removes failed and stuck documents created before
// cutoff, together with their transactions and summaries. Completed
// documents are kept so their summaries stay servable.
func (r *DocumentRepo) DeleteStaleBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `
		DELETE FROM summaries
		WHERE transaction_id IN (
			SELECT t.id FROM transactions t
			JOIN documents d ON d.id = t.document_id
			WHERE d.ctime < $1 AND d.status IN ($2, $3, $4)
		)
	`
	args := []interface{}{cutoff, model.StatusError, model.StatusQueued, model.StatusProcessing}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE document_id IN (
			SELECT id FROM documents WHERE ctime < $1 AND status IN ($2, $3, $4)
		)
	`, args...); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM documents WHERE ctime < $1 AND status IN ($2, $3, $4)
	`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var doc model.Document
	if err := row.Scan(
		&doc.ID,
		&doc.URL,
		&doc.Source,
		&doc.Status,
		&doc.OwnerID,
		&doc.ArtifactID,
		&doc.Ctime,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
