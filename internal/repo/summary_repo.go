package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
)

type SummaryRepo struct {
	db *sql.DB
}

func NewSummaryRepo(db *sql.DB) *SummaryRepo {
	return &SummaryRepo{db: db}
}

func (r *SummaryRepo) Create(ctx context.Context, summary *model.Summary) error {
	content := summary.Content
	if len(content) == 0 {
		content = json.RawMessage("{}")
	}
	const query = `
		INSERT INTO summaries (id, type, content, artifact_url, transaction_id, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		summary.ID,
		summary.Type,
		string(content),
		summary.ArtifactURL,
		summary.TransactionID,
		summary.Ctime,
	)
	return err
}

// LatestByDocument resolves the newest summary through the transaction that
// produced it.
func (r *SummaryRepo) LatestByDocument(ctx context.Context, docID string) (*model.Summary, error) {
	const query = `
		SELECT s.id, s.type, s.content, s.artifact_url, s.transaction_id, s.ctime
		FROM summaries s
		JOIN transactions t ON t.id = s.transaction_id
		WHERE t.document_id = $1
		ORDER BY s.ctime DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, docID)
	var summary model.Summary
	var content string
	if err := row.Scan(
		&summary.ID,
		&summary.Type,
		&content,
		&summary.ArtifactURL,
		&summary.TransactionID,
		&summary.Ctime,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	summary.Content = json.RawMessage(content)
	return &summary, nil
}
