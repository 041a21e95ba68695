package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"
	"github.com/webrecap/webrecap/internal/model"
)

type PrototypeRepo struct {
	db *sql.DB
}

func NewPrototypeRepo(db *sql.DB) *PrototypeRepo {
	return &PrototypeRepo{db: db}
}

func (r *PrototypeRepo) Create(ctx context.Context, proto *model.Prototype) error {
	const query = `
		INSERT INTO prototypes (id, text, embedding, ctime)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		proto.ID,
		proto.Text,
		pgvector.NewVector(proto.Embedding),
		proto.Ctime,
	)
	return err
}

func (r *PrototypeRepo) ListAll(ctx context.Context) ([]model.Prototype, error) {
	const query = `SELECT id, text, embedding, ctime FROM prototypes ORDER BY ctime`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var protos []model.Prototype
	for rows.Next() {
		var proto model.Prototype
		var vec pgvector.Vector
		if err := rows.Scan(&proto.ID, &proto.Text, &vec, &proto.Ctime); err != nil {
			return nil, err
		}
		proto.Embedding = vec.Slice()
		protos = append(protos, proto)
	}
	return protos, rows.Err()
}

// MaxSimilarity returns the highest cosine similarity between the given
// embedding and any stored prototype, 0 when the table is empty.
func (r *PrototypeRepo) MaxSimilarity(ctx context.Context, embedding []float32) (float64, error) {
	const query = `
		SELECT 1 - (embedding <=> $1::vector) AS similarity
		FROM prototypes
		ORDER BY embedding <=> $1::vector
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, pgvector.NewVector(embedding))
	var similarity float64
	if err := row.Scan(&similarity); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return similarity, nil
}

func (r *PrototypeRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prototypes`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// PruneOldest keeps the newest keep rows and deletes the rest.
func (r *PrototypeRepo) PruneOldest(ctx context.Context, keep int64) (int64, error) {
	const query = `
		DELETE FROM prototypes
		WHERE id NOT IN (
			SELECT id FROM prototypes ORDER BY ctime DESC LIMIT $1
		)
	`
	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
