package usecase

import (
	"context"
	"errors"

	"bargain-backend/model"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepository returns nil, nil for an unknown id.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

type ProductViewRepository interface {
	ProductRepository
	IncrementViewCount(ctx context.Context, id string) error
}

type SessionRepository interface {
	Create(ctx context.Context, s *model.NegotiationSession) error
	FindActive(ctx context.Context, productID, userID string) (*model.NegotiationSession, error)
}

type TurnRepository interface {
	CreateTurn(ctx context.Context, t *model.NegotiationTurn) error
	GetTurnsBySessionID(ctx context.Context, sessionID string) ([]model.NegotiationTurn, error)
}

type TrainingRepository interface {
	CreateRecord(ctx context.Context, rec *model.TrainingRecord) error
	GetAll(ctx context.Context) ([]model.TrainingRecord, error)
}

// Notifier pushes a decision onto the user's outbound channel.
type Notifier interface {
	Notify(ctx context.Context, userID string, d model.Decision) error
}

// EventPublisher ships telemetry to external collaborators.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
