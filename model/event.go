package model

import "github.com/shopspring/decimal"

type ProductViewEvent struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Timestamp   int64  `json:"timestamp"` // unix millis
}

// NegotiationEvent is published after every concrete offer was evaluated.
type NegotiationEvent struct {
	SessionID     string           `json:"session_id"`
	ProductID     string           `json:"product_id"`
	UserID        string           `json:"user_id"`
	ProposedPrice decimal.Decimal  `json:"proposed_price"`
	Accepted      bool             `json:"accepted"`
	CounterOffer  *decimal.Decimal `json:"counter_offer"`
	Timestamp     int64            `json:"timestamp"`
}
