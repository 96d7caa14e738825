package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bargain-backend/model"
	"bargain-backend/pkg/predictor"
)

const MinTrainingRecords = 5

type TrainingReader interface {
	GetAll(ctx context.Context) ([]model.TrainingRecord, error)
}

// Learner is the trainable side of the predictor.
type Learner interface {
	Train(ctx context.Context, examples []predictor.Example) error
}

type Trainer struct {
	records TrainingReader
	learner Learner
	logger  *zap.Logger
}

func NewTrainer(records TrainingReader, learner Learner, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{records: records, learner: learner, logger: logger}
}

// TrainAgent refits the predictor on every stored training record.
// Too little data is reported in the summary, not as an error.
func (t *Trainer) TrainAgent(ctx context.Context) (string, error) {
	records, err := t.records.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("load training records: %w", err)
	}
	if len(records) < MinTrainingRecords {
		t.logger.Info("skipping training", zap.Int("records", len(records)))
		return fmt.Sprintf("Not enough data to train. Need at least %d records.", MinTrainingRecords), nil
	}

	examples := make([]predictor.Example, len(records))
	for i, r := range records {
		label := 0.0
		if r.Accepted {
			label = 1.0
		}
		// Historical age is not stored, so every record uses the default age.
		examples[i] = predictor.Example{
			Features: offerFeatures(r.ProductPrice, r.ProductMinPrice, r.ProposedPrice, DefaultAgeDays, r.UserMessage),
			Label:    label,
		}
	}

	if err := t.learner.Train(ctx, examples); err != nil {
		return "", fmt.Errorf("train predictor: %w", err)
	}
	t.logger.Info("predictor retrained", zap.Int("records", len(records)))
	return fmt.Sprintf("Training complete! Agent refined with %d records.", len(records)), nil
}
