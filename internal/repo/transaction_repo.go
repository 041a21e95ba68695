package repo

import (
	"context"
	"database/sql"

	"github.com/webrecap/webrecap/internal/model"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
)

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	const query = `
		INSERT INTO transactions (id, document_id, status, ctime)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, txn.ID, txn.DocumentID, txn.Status, txn.Ctime)
	return err
}

func (r *TransactionRepo) SetStatus(ctx context.Context, txnID, status string) error {
	const query = `UPDATE transactions SET status = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, txnID)
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

func (r *TransactionRepo) LatestByDocument(ctx context.Context, docID string) (*model.Transaction, error) {
	const query = `
		SELECT id, document_id, status, ctime
		FROM transactions
		WHERE document_id = $1
		ORDER BY ctime DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, docID)
	var txn model.Transaction
	if err := row.Scan(&txn.ID, &txn.DocumentID, &txn.Status, &txn.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}
