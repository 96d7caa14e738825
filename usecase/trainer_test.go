package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bargain-backend/model"
	"bargain-backend/pkg/predictor"
)

type fakeLearner struct {
	examples []predictor.Example
	calls    int
	err      error
}

func (f *fakeLearner) Train(_ context.Context, ex []predictor.Example) error {
	f.calls++
	f.examples = ex
	return f.err
}

func records(n int) []model.TrainingRecord {
	out := make([]model.TrainingRecord, n)
	for i := range out {
		out[i] = model.TrainingRecord{
			ID:              string(rune('a' + i)),
			ProductPrice:    dec("1000"),
			ProductMinPrice: dec("800"),
			ProposedPrice:   dec("900"),
			UserMessage:     "take 900",
			Accepted:        i%2 == 0,
		}
	}
	return out
}

func TestTrainAgentNeedsFiveRecords(t *testing.T) {
	learner := &fakeLearner{}
	tr := NewTrainer(&fakeTraining{records: records(4)}, learner, nil)

	msg, err := tr.TrainAgent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Not enough data to train. Need at least 5 records.", msg)
	assert.Zero(t, learner.calls)
}

func TestTrainAgentBuildsExamples(t *testing.T) {
	learner := &fakeLearner{}
	tr := NewTrainer(&fakeTraining{records: records(5)}, learner, nil)

	msg, err := tr.TrainAgent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Training complete! Agent refined with 5 records.", msg)

	require.Len(t, learner.examples, 5)
	first := learner.examples[0]
	assert.Equal(t, 1.0, first.Label)
	assert.Equal(t, 0.0, learner.examples[1].Label)
	assert.InDelta(t, 1.0, first.Features[0], 1e-12)
	assert.InDelta(t, 0.8, first.Features[1], 1e-12)
	assert.InDelta(t, 0.9, first.Features[2], 1e-12)
	assert.InDelta(t, 10.0/30.0, first.Features[3], 1e-12)
	assert.InDelta(t, 0.08, first.Features[4], 1e-12)
}

func TestTrainAgentErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewTrainer(&fakeTraining{err: boom}, &fakeLearner{}, nil).TrainAgent(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = NewTrainer(&fakeTraining{records: records(6)}, &fakeLearner{err: boom}, nil).TrainAgent(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTrainAgentLeavesModelUntouchedWithoutData(t *testing.T) {
	ctx := context.Background()
	m := predictor.New(ctx, predictor.WithRand(rand.New(rand.NewSource(3))), predictor.WithEpochs(10))
	before := m.Snapshot()

	_, err := NewTrainer(&fakeTraining{records: records(2)}, m, nil).TrainAgent(ctx)
	require.NoError(t, err)
	assert.Same(t, before, m.Snapshot())

	_, err = NewTrainer(&fakeTraining{records: records(5)}, m, nil).TrainAgent(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, m.Snapshot().Version)
}
