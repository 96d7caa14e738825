package dao

import (
	"context"
	"database/sql"

	"bargain-backend/model"
)

// TrainingRepository is append-only.
type TrainingRepository struct {
	db *sql.DB
}

func NewTrainingRepository(db *sql.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

func (r *TrainingRepository) CreateRecord(ctx context.Context, rec *model.TrainingRecord) error {
	query := `INSERT INTO training_records
		(id, product_id, product_price, product_min_price, proposed_price, user_message, agent_message, accepted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.ProductID, rec.ProductPrice, rec.ProductMinPrice, rec.ProposedPrice,
		rec.UserMessage, rec.AgentMessage, rec.Accepted, utc(rec.CreatedAt))
	return err
}

func (r *TrainingRepository) GetAll(ctx context.Context) ([]model.TrainingRecord, error) {
	query := `
		SELECT id, product_id, product_price, product_min_price, proposed_price, user_message, agent_message, accepted, created_at
		FROM training_records
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.TrainingRecord
	for rows.Next() {
		var rec model.TrainingRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.ProductPrice, &rec.ProductMinPrice, &rec.ProposedPrice,
			&rec.UserMessage, &rec.AgentMessage, &rec.Accepted, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = utc(rec.CreatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *TrainingRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_records`).Scan(&n)
	return n, err
}
