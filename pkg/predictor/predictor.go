// Package predictor implements the acceptance model: a fixed 5-8-1 feed-forward
// network with sigmoid activations, trained online by backpropagation.
//
// Inference reads an immutable Snapshot through an atomic pointer. Training
// works on a private copy and swaps the result in when it finishes, so
// concurrent Predict calls never observe half-updated weights.
package predictor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	InputSize    = 5
	HiddenSize   = 8
	LearningRate = 0.05
	Epochs       = 1000

	initScale = 0.1
)

// Features is one scaled input vector.
type Features [InputSize]float64

// Example is a labeled training input. Label is 0 or 1.
type Example struct {
	Features Features
	Label    float64
}

// Params holds the network parameters.
type Params struct {
	W1 [InputSize][HiddenSize]float64 // input -> hidden
	W2 [HiddenSize]float64            // hidden -> output
	B1 [HiddenSize]float64
	B2 float64
}

// Snapshot is an immutable, versioned parameter set.
type Snapshot struct {
	Version uint64
	Params  Params
}

// ParamStore persists the encoded parameter blob.
type ParamStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

type Model struct {
	current atomic.Pointer[Snapshot]
	trainMu sync.Mutex

	store  ParamStore
	rng    *rand.Rand
	epochs int
	logger *zap.Logger
}

type Option func(*Model)

// WithRand sets the source used for weight initialisation.
func WithRand(r *rand.Rand) Option {
	return func(m *Model) { m.rng = r }
}

// WithStore sets where parameters are loaded from and saved to.
func WithStore(s ParamStore) Option {
	return func(m *Model) { m.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithEpochs overrides the number of passes per Train call.
func WithEpochs(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.epochs = n
		}
	}
}

// New returns a usable model. Parameters come from the store when it holds a
// valid blob; otherwise they are freshly initialised.
func New(ctx context.Context, opts ...Option) *Model {
	m := &Model{
		epochs: Epochs,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if m.store != nil {
		snap, err := m.load(ctx)
		if err == nil {
			m.current.Store(snap)
			m.logger.Info("loaded predictor parameters", zap.Uint64("version", snap.Version))
			return m
		}
		m.logger.Warn("predictor parameters unavailable, initialising fresh weights", zap.Error(err))
	}

	m.current.Store(&Snapshot{Params: m.initParams()})
	return m
}

func (m *Model) initParams() Params {
	var p Params
	for i := 0; i < InputSize; i++ {
		for j := 0; j < HiddenSize; j++ {
			p.W1[i][j] = m.rng.NormFloat64() * initScale
		}
	}
	for j := 0; j < HiddenSize; j++ {
		p.W2[j] = m.rng.NormFloat64() * initScale
	}
	return p
}

func (m *Model) load(ctx context.Context) (*Snapshot, error) {
	blob, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(blob)
}

// Snapshot returns the parameters currently used for inference.
func (m *Model) Snapshot() *Snapshot {
	return m.current.Load()
}

// Predict returns the acceptance probability in (0,1).
func (m *Model) Predict(x Features) float64 {
	return m.current.Load().Params.predict(x)
}

// Train runs the configured number of epochs over batch, installs the result
// and persists it. Calls are serialised; a cancelled context or a failed save
// discards the run.
func (m *Model) Train(ctx context.Context, batch []Example) error {
	m.trainMu.Lock()
	defer m.trainMu.Unlock()

	base := m.current.Load()
	p := base.Params

	for epoch := 0; epoch < m.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training aborted at epoch %d: %w", epoch, err)
		}
		for _, ex := range batch {
			p.step(ex.Features, ex.Label)
		}
	}

	next := &Snapshot{Version: base.Version + 1, Params: p}

	// Persist before publishing so live weights always match what a restart loads.
	if m.store != nil {
		blob, err := Encode(next)
		if err != nil {
			return fmt.Errorf("encode parameters: %w", err)
		}
		if err := m.store.Save(ctx, blob); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
	}

	m.current.Store(next)
	m.logger.Info("predictor trained",
		zap.Int("examples", len(batch)),
		zap.Int("epochs", m.epochs),
		zap.Uint64("version", next.Version))
	return nil
}

func (p *Params) hidden(x Features) [HiddenSize]float64 {
	var h [HiddenSize]float64
	for j := 0; j < HiddenSize; j++ {
		sum := p.B1[j]
		for i := 0; i < InputSize; i++ {
			sum += x[i] * p.W1[i][j]
		}
		h[j] = sigmoid(sum)
	}
	return h
}

func (p *Params) output(h [HiddenSize]float64) float64 {
	sum := p.B2
	for j := 0; j < HiddenSize; j++ {
		sum += h[j] * p.W2[j]
	}
	return sigmoid(sum)
}

func (p *Params) predict(x Features) float64 {
	return p.output(p.hidden(x))
}

// step is one gradient update on squared error for a single example.
// The hidden deltas are taken with the already updated output weights.
func (p *Params) step(x Features, label float64) {
	h := p.hidden(x)
	out := p.output(h)

	outErr := (label - out) * out * (1 - out)

	for j := 0; j < HiddenSize; j++ {
		p.W2[j] += LearningRate * outErr * h[j]
	}
	p.B2 += LearningRate * outErr

	for j := 0; j < HiddenSize; j++ {
		hiddenErr := outErr * p.W2[j] * h[j] * (1 - h[j])
		for i := 0; i < InputSize; i++ {
			p.W1[i][j] += LearningRate * hiddenErr * x[i]
		}
		p.B1[j] += LearningRate * hiddenErr
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
