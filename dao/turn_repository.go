package dao

import (
	"context"
	"database/sql"
	"fmt"

	"bargain-backend/model"

	"github.com/shopspring/decimal"
)

// TurnRepository only inserts and reads: turns are never updated or deleted.
type TurnRepository struct {
	db *sql.DB
}

func NewTurnRepository(db *sql.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) CreateTurn(ctx context.Context, t *model.NegotiationTurn) error {
	if !t.Sender.Valid() {
		return fmt.Errorf("invalid sender role %q", t.Sender)
	}
	if t.ProposedPrice != nil && t.ProposedPrice.IsNegative() {
		return fmt.Errorf("proposed price must be nonnegative, got %s", t.ProposedPrice)
	}

	var message sql.NullString
	if t.Message != "" {
		message = sql.NullString{String: t.Message, Valid: true}
	}
	var price decimal.NullDecimal
	if t.ProposedPrice != nil {
		price = decimal.NewNullDecimal(*t.ProposedPrice)
	}

	query := `INSERT INTO negotiation_turns (id, session_id, sender, message, proposed_price, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.SessionID, string(t.Sender), message, price, utc(t.CreatedAt))
	return err
}

// GetTurnsBySessionID returns the transcript in ascending time order.
// Ids are monotonic ULIDs, so equal timestamps keep insertion order.
func (r *TurnRepository) GetTurnsBySessionID(ctx context.Context, sessionID string) ([]model.NegotiationTurn, error) {
	query := `
		SELECT id, session_id, sender, message, proposed_price, created_at
		FROM negotiation_turns
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.NegotiationTurn
	for rows.Next() {
		var t model.NegotiationTurn
		var sender string
		var message sql.NullString
		var price decimal.NullDecimal

		if err := rows.Scan(&t.ID, &t.SessionID, &sender, &message, &price, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Sender = model.SenderRole(sender)
		t.CreatedAt = utc(t.CreatedAt)
		if message.Valid {
			t.Message = message.String
		}
		if price.Valid {
			v := price.Decimal
			t.ProposedPrice = &v
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}
