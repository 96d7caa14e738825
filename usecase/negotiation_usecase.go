package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"bargain-backend/model"
	"bargain-backend/pkg/phrasebook"
)

const eventTimeout = 5 * time.Second

// TurnInput is one inbound buyer message. ProposedPrice is nil when no figure was given.
type TurnInput struct {
	ProductID     string
	UserID        string
	Message       string
	ProposedPrice *decimal.Decimal
}

type NegotiationUsecase struct {
	products ProductRepository
	sessions SessionRepository
	turns    TurnRepository
	training TrainingRepository
	policy   *Policy
	phrases  *phrasebook.Phrasebook
	logger   *zap.Logger

	notifier   Notifier
	events     EventPublisher
	eventTopic string

	sessionGroup singleflight.Group
	wg           sync.WaitGroup

	now   func() time.Time
	newID func() string
}

type NegotiationOption func(*NegotiationUsecase)

func WithNotifier(n Notifier) NegotiationOption {
	return func(u *NegotiationUsecase) { u.notifier = n }
}

// WithEvents publishes a NegotiationEvent to topic after every judged offer.
func WithEvents(p EventPublisher, topic string) NegotiationOption {
	return func(u *NegotiationUsecase) { u.events, u.eventTopic = p, topic }
}

func WithClock(now func() time.Time) NegotiationOption {
	return func(u *NegotiationUsecase) { u.now = now }
}

func NewNegotiationUsecase(
	products ProductRepository,
	sessions SessionRepository,
	turns TurnRepository,
	training TrainingRepository,
	policy *Policy,
	phrases *phrasebook.Phrasebook,
	logger *zap.Logger,
	opts ...NegotiationOption,
) *NegotiationUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &NegotiationUsecase{
		products: products,
		sessions: sessions,
		turns:    turns,
		training: training,
		policy:   policy,
		phrases:  phrases,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// EvaluateOffer runs one turn and returns the decision.
// A missing product yields the not-found decision together with ErrProductNotFound.
// Every other failure is logged and answered with the unavailable decision.
func (u *NegotiationUsecase) EvaluateOffer(ctx context.Context, in TurnInput) (*model.Decision, error) {
	if in.ProductID == "" || in.UserID == "" {
		d := u.canned(phrasebook.InvalidRequest)
		return &d, nil
	}

	d, err := u.runTurn(ctx, in)
	if errors.Is(err, ErrProductNotFound) {
		nf := u.canned(phrasebook.NotFound)
		return &nf, err
	}
	if err != nil {
		u.logger.Error("negotiation turn failed",
			zap.String("product_id", in.ProductID), zap.String("user_id", in.UserID), zap.Error(err))
		fb := u.canned(phrasebook.Unavailable)
		return &fb, nil
	}
	return d, nil
}

// HandleTurn runs one turn and pushes the decision, or a fallback, to the user's channel.
// The returned error only reports a failed push.
func (u *NegotiationUsecase) HandleTurn(ctx context.Context, in TurnInput) error {
	var d model.Decision
	switch {
	case in.ProductID == "" || in.UserID == "":
		d = u.canned(phrasebook.InvalidRequest)
	default:
		res, err := u.runTurn(ctx, in)
		if err != nil {
			u.logger.Error("negotiation turn failed",
				zap.String("product_id", in.ProductID), zap.String("user_id", in.UserID), zap.Error(err))
			d = u.canned(phrasebook.Fallback)
		} else {
			d = *res
		}
	}

	if u.notifier == nil {
		return errors.New("no notifier configured")
	}
	if err := u.notifier.Notify(ctx, in.UserID, d); err != nil {
		u.logger.Warn("failed to deliver decision", zap.String("user_id", in.UserID), zap.Error(err))
		return fmt.Errorf("deliver decision: %w", err)
	}
	return nil
}

// GetTranscript returns the active session of the pair and its ordered turns.
// Session is nil when the pair has never negotiated.
func (u *NegotiationUsecase) GetTranscript(ctx context.Context, productID, userID string) (*model.Transcript, error) {
	s, err := u.sessions.FindActive(ctx, productID, userID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	t := &model.Transcript{Session: s, Turns: []model.NegotiationTurn{}}
	if s == nil {
		return t, nil
	}
	turns, err := u.turns.GetTurnsBySessionID(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	if turns != nil {
		t.Turns = turns
	}
	return t, nil
}

// Close waits for in-flight telemetry.
func (u *NegotiationUsecase) Close() {
	u.wg.Wait()
}

func (u *NegotiationUsecase) runTurn(ctx context.Context, in TurnInput) (*model.Decision, error) {
	session, err := u.resolveSession(ctx, in.ProductID, in.UserID)
	if err != nil {
		return nil, err
	}

	// The buyer turn is stored before anything can fail so the transcript stays complete.
	price := normalisePrice(in.ProposedPrice)
	buyer := &model.NegotiationTurn{
		ID:            u.newID(),
		SessionID:     session.ID,
		Sender:        model.SenderBuyer,
		Message:       in.Message,
		ProposedPrice: price,
		CreatedAt:     u.now(),
	}
	if err := u.turns.CreateTurn(ctx, buyer); err != nil {
		return nil, fmt.Errorf("save buyer turn: %w", err)
	}

	history, err := u.turns.GetTurnsBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	u.logger.Debug("turn received",
		zap.String("session_id", session.ID), zap.Int("history", len(history)))

	pc, err := u.priceContext(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	eval := u.policy.Evaluate(Offer{Message: in.Message, ProposedPrice: price, Context: pc})

	if eval.Record != nil {
		eval.Record.ID = u.newID()
		eval.Record.CreatedAt = u.now()
		if err := u.training.CreateRecord(ctx, eval.Record); err != nil {
			return nil, fmt.Errorf("save training record: %w", err)
		}
	}

	agent := &model.NegotiationTurn{
		ID:            u.newID(),
		SessionID:     session.ID,
		Sender:        model.SenderAgent,
		Message:       eval.Decision.ResponseMessage,
		ProposedPrice: eval.Decision.CounterOffer,
		CreatedAt:     u.now(),
	}
	if err := u.turns.CreateTurn(ctx, agent); err != nil {
		return nil, fmt.Errorf("save agent turn: %w", err)
	}

	if eval.Record != nil {
		u.publishNegotiation(session, eval)
	}

	d := eval.Decision
	return &d, nil
}

// resolveSession returns the active session of the pair, creating it on first contact.
// Concurrent first turns for one pair share a single creation.
func (u *NegotiationUsecase) resolveSession(ctx context.Context, productID, userID string) (*model.NegotiationSession, error) {
	key := productID + "\x00" + userID
	// The shared call must not die with whichever caller happened to start it.
	ctx = context.WithoutCancel(ctx)
	v, err, _ := u.sessionGroup.Do(key, func() (interface{}, error) {
		s, err := u.sessions.FindActive(ctx, productID, userID)
		if err != nil {
			return nil, fmt.Errorf("find session: %w", err)
		}
		if s != nil {
			return s, nil
		}
		s = &model.NegotiationSession{
			ID:        u.newID(),
			ProductID: productID,
			UserID:    userID,
			CreatedAt: u.now(),
			Active:    true,
		}
		if err := u.sessions.Create(ctx, s); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		u.logger.Info("negotiation session opened",
			zap.String("session_id", s.ID), zap.String("product_id", productID), zap.String("user_id", userID))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.NegotiationSession), nil
}

func (u *NegotiationUsecase) priceContext(ctx context.Context, productID string) (PriceContext, error) {
	p, err := u.products.GetByID(ctx, productID)
	if err != nil {
		return PriceContext{}, fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return PriceContext{}, ErrProductNotFound
	}

	now := u.now()
	floor := DefaultFloor(p.Price)
	if p.MinPrice != nil {
		floor = *p.MinPrice
	}
	created := now.AddDate(0, 0, -DefaultAgeDays)
	if p.CreatedAt != nil {
		created = *p.CreatedAt
	}

	return PriceContext{
		ProductID:    p.ID,
		ProductName:  p.Name,
		CurrentPrice: p.Price,
		FloorPrice:   floor,
		AgeDays:      int(now.Sub(created).Hours() / 24),
	}, nil
}

// normalisePrice drops negative figures and rounds to cents, the precision prices are stored with.
func normalisePrice(p *decimal.Decimal) *decimal.Decimal {
	if p == nil || p.IsNegative() {
		return nil
	}
	r := p.Round(2)
	return &r
}

func (u *NegotiationUsecase) canned(c phrasebook.Category) model.Decision {
	return model.Decision{ResponseMessage: u.phrases.Render(c, phrasebook.Vars{})}
}

func (u *NegotiationUsecase) publishNegotiation(s *model.NegotiationSession, eval Evaluation) {
	if u.events == nil {
		return
	}
	ev := model.NegotiationEvent{
		SessionID:     s.ID,
		ProductID:     s.ProductID,
		UserID:        s.UserID,
		ProposedPrice: eval.Record.ProposedPrice,
		Accepted:      eval.Decision.Accepted,
		CounterOffer:  eval.Decision.CounterOffer,
		Timestamp:     eval.Record.CreatedAt.UnixMilli(),
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := u.events.Publish(ctx, u.eventTopic, ev); err != nil {
			u.logger.Warn("failed to publish negotiation event", zap.String("session_id", ev.SessionID), zap.Error(err))
		}
	}()
}
