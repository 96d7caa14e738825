package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bargain-backend/model"
	"bargain-backend/pkg/predictor"
)

type stubPredictor float64

func (s stubPredictor) Predict(predictor.Features) float64 { return float64(s) }

type recordingPredictor struct {
	prob float64
	seen []predictor.Features
}

func (r *recordingPredictor) Predict(f predictor.Features) float64 {
	r.seen = append(r.seen, f)
	return r.prob
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type fakeProducts struct {
	mu       sync.Mutex
	products map[string]*model.Product
	views    map[string]int
	err      error
	viewErr  error
}

func newFakeProducts(ps ...*model.Product) *fakeProducts {
	f := &fakeProducts{products: map[string]*model.Product{}, views: map[string]int{}}
	for _, p := range ps {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) IncrementViewCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.viewErr != nil {
		return f.viewErr
	}
	f.views[id]++
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions []*model.NegotiationSession
	creates  int
}

func (f *fakeSessions) Create(_ context.Context, s *model.NegotiationSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// widen the race window for concurrent first turns
	time.Sleep(time.Millisecond)
	f.creates++
	cp := *s
	f.sessions = append(f.sessions, &cp)
	return nil
}

func (f *fakeSessions) FindActive(_ context.Context, productID, userID string) (*model.NegotiationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ProductID == productID && s.UserID == userID && s.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// gatedSessions holds the first FindActive until release is closed, then reports
// the caller's context error the way a real driver would.
type gatedSessions struct {
	*fakeSessions
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSessions() *gatedSessions {
	return &gatedSessions{fakeSessions: &fakeSessions{}, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSessions) FindActive(ctx context.Context, productID, userID string) (*model.NegotiationSession, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return g.fakeSessions.FindActive(ctx, productID, userID)
}

type fakeTurns struct {
	mu    sync.Mutex
	turns []model.NegotiationTurn
}

func (f *fakeTurns) CreateTurn(_ context.Context, t *model.NegotiationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, *t)
	return nil
}

func (f *fakeTurns) GetTurnsBySessionID(_ context.Context, sessionID string) ([]model.NegotiationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.NegotiationTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeTraining struct {
	mu      sync.Mutex
	records []model.TrainingRecord
	err     error
}

func (f *fakeTraining) CreateRecord(_ context.Context, rec *model.TrainingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeTraining) GetAll(context.Context) ([]model.TrainingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.TrainingRecord(nil), f.records...), nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered map[string][]model.Decision
	err       error
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, d model.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.delivered == nil {
		f.delivered = map[string][]model.Decision{}
	}
	f.delivered[userID] = append(f.delivered[userID], d)
	return nil
}

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}
