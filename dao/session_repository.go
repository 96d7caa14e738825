package dao

import (
	"context"
	"database/sql"
	"errors"

	"bargain-backend/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *model.NegotiationSession) error {
	query := `INSERT INTO negotiation_sessions (id, product_id, user_id, created_at, active) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.ProductID, s.UserID, utc(s.CreatedAt), s.Active)
	return err
}

// FindActive returns the active session for the pair, or nil, nil when there is none.
// If more than one active row exists the oldest wins.
func (r *SessionRepository) FindActive(ctx context.Context, productID, userID string) (*model.NegotiationSession, error) {
	query := `
		SELECT id, product_id, user_id, created_at, active
		FROM negotiation_sessions
		WHERE product_id = ? AND user_id = ? AND active = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	var s model.NegotiationSession
	err := r.db.QueryRowContext(ctx, query, productID, userID, true).
		Scan(&s.ID, &s.ProductID, &s.UserID, &s.CreatedAt, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CreatedAt = utc(s.CreatedAt)
	return &s, nil
}
