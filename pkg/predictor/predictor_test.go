package predictor

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleInput = Features{1.0, 0.8, 0.85, 10.0 / 30.0, 0.12}

func newSeeded(t *testing.T, opts ...Option) *Model {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	return New(context.Background(), opts...)
}

func TestPredictIsDeterministic(t *testing.T) {
	t.Parallel()

	m := newSeeded(t)
	first := m.Predict(sampleInput)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Predict(sampleInput))
	}
	assert.Greater(t, first, 0.0)
	assert.Less(t, first, 1.0)

	// Same seed, same parameters, same output.
	assert.Equal(t, first, newSeeded(t).Predict(sampleInput))
}

func TestInitialisationScalesWeightsAndZeroesBiases(t *testing.T) {
	t.Parallel()

	p := newSeeded(t).Snapshot().Params
	for i := 0; i < InputSize; i++ {
		for j := 0; j < HiddenSize; j++ {
			assert.Less(t, abs(p.W1[i][j]), 1.0, "w1[%d][%d]", i, j)
		}
	}
	assert.Equal(t, [HiddenSize]float64{}, p.B1)
	assert.Zero(t, p.B2)
}

func TestTrainOnPositiveLabelsIncreasesProbability(t *testing.T) {
	t.Parallel()

	m := newSeeded(t, WithEpochs(50))
	batch := []Example{
		{Features: sampleInput, Label: 1},
		{Features: sampleInput, Label: 1},
	}

	prev := m.Predict(sampleInput)
	for round := 0; round < 5; round++ {
		require.NoError(t, m.Train(context.Background(), batch))
		next := m.Predict(sampleInput)
		assert.Greater(t, next, prev, "round %d", round)
		prev = next
	}
	assert.Equal(t, uint64(5), m.Snapshot().Version)
}

func TestTrainLearnsToSeparateLabels(t *testing.T) {
	t.Parallel()

	m := newSeeded(t)
	high := Features{1.0, 0.8, 0.95, 0.33, 0.2}
	low := Features{1.0, 0.8, 0.2, 0.33, 0.2}
	batch := []Example{{Features: high, Label: 1}, {Features: low, Label: 0}}

	require.NoError(t, m.Train(context.Background(), batch))
	assert.Greater(t, m.Predict(high), m.Predict(low))
}

func TestTrainCancelledLeavesSnapshotUntouched(t *testing.T) {
	t.Parallel()

	m := newSeeded(t)
	before := m.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Train(ctx, []Example{{Features: sampleInput, Label: 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Same(t, before, m.Snapshot())
}

func TestSaveThenLoadRoundTripsExactly(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "model", "bargaining_brain.bin"))
	trained := newSeeded(t, WithStore(store), WithEpochs(3))
	require.NoError(t, trained.Train(context.Background(), []Example{{Features: sampleInput, Label: 1}}))

	// A different seed proves the parameters came from the blob.
	loaded := New(context.Background(), WithStore(store), WithRand(rand.New(rand.NewSource(7))))
	assert.Equal(t, trained.Snapshot().Params, loaded.Snapshot().Params)
	assert.Equal(t, trained.Snapshot().Version, loaded.Snapshot().Version)
	assert.Equal(t, trained.Predict(sampleInput), loaded.Predict(sampleInput))
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context) ([]byte, error) { return nil, os.ErrNotExist }
func (f failingStore) Save(context.Context, []byte) error   { return f.err }

func TestTrainKeepsSnapshotWhenSaveFails(t *testing.T) {
	t.Parallel()

	diskFull := errors.New("disk full")
	m := newSeeded(t, WithStore(failingStore{err: diskFull}), WithEpochs(5))
	before := m.Snapshot()

	err := m.Train(context.Background(), []Example{{Features: sampleInput, Label: 1}})
	require.ErrorIs(t, err, diskFull)
	assert.Same(t, before, m.Snapshot())
}

func TestNewFallsBackWhenBlobMissingOrCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := New(context.Background(), WithStore(NewFileStore(filepath.Join(dir, "absent.bin"))))
	require.NotNil(t, missing.Snapshot())
	assert.Zero(t, missing.Snapshot().Version)

	corruptPath := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(corruptPath, []byte("not a model"), 0o644))
	corrupt := New(context.Background(), WithStore(NewFileStore(corruptPath)))
	p := corrupt.Predict(sampleInput)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
}

func TestDecodeRejectsBadBlobs(t *testing.T) {
	t.Parallel()

	good, err := Encode(newSeeded(t).Snapshot())
	require.NoError(t, err)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'

	badShape := append([]byte(nil), good...)
	badShape[6] = 9

	testCases := []struct {
		name string
		blob []byte
	}{
		{name: "empty", blob: nil},
		{name: "truncated", blob: good[:len(good)-1]},
		{name: "magic", blob: badMagic},
		{name: "shape", blob: badShape},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.blob)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptBlob)
		})
	}
}

func TestFileStoreSaveReplacesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "brain.bin"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte("first")))
	require.NoError(t, store.Save(ctx, []byte("second")))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestPredictDuringTrainSeesConsistentSnapshots(t *testing.T) {
	t.Parallel()

	m := newSeeded(t, WithEpochs(200))
	batch := []Example{{Features: sampleInput, Label: 1}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Train(context.Background(), batch)
	}()

	for i := 0; i < 1000; i++ {
		snap := m.Snapshot()
		assert.Equal(t, snap.Params.predict(sampleInput), snap.Params.predict(sampleInput))
	}
	wg.Wait()
	assert.Equal(t, uint64(1), m.Snapshot().Version)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
