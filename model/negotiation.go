package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SenderRole string

const (
	SenderBuyer SenderRole = "BUYER"
	SenderAgent SenderRole = "AGENT"
)

// Valid reports whether r is one of the two known roles.
func (r SenderRole) Valid() bool {
	return r == SenderBuyer || r == SenderAgent
}

// NegotiationSession is the conversation between one user and the agent about one product.
// UserID is either an authenticated identity or an anonymous token.
type NegotiationSession struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// NegotiationTurn is immutable once stored.
type NegotiationTurn struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"session_id"`
	Sender        SenderRole       `json:"sender"`
	Message       string           `json:"message,omitempty"`
	ProposedPrice *decimal.Decimal `json:"proposed_price"` // nil when no figure was stated
	CreatedAt     time.Time        `json:"created_at"`
}

// TrainingRecord is one labeled example. Append-only.
type TrainingRecord struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	ProductPrice    decimal.Decimal `json:"product_price"`
	ProductMinPrice decimal.Decimal `json:"product_min_price"`
	ProposedPrice   decimal.Decimal `json:"proposed_price"`
	UserMessage     string          `json:"user_message"`
	AgentMessage    string          `json:"agent_message"`
	Accepted        bool            `json:"accepted"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Decision struct {
	Accepted        bool             `json:"accepted"`
	CounterOffer    *decimal.Decimal `json:"counter_offer"`
	ResponseMessage string           `json:"response_message"`
}

type Transcript struct {
	Session *NegotiationSession `json:"session"`
	Turns   []NegotiationTurn   `json:"turns"`
}
