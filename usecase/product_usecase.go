package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bargain-backend/model"
)

type ProductUsecase struct {
	productRepo ProductViewRepository
	events      EventPublisher
	viewTopic   string
	logger      *zap.Logger
	wg          sync.WaitGroup
	now         func() time.Time
}

// NewProductUsecase builds the catalog read path. events may be nil.
func NewProductUsecase(productRepo ProductViewRepository, events EventPublisher, viewTopic string, logger *zap.Logger) *ProductUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductUsecase{
		productRepo: productRepo,
		events:      events,
		viewTopic:   viewTopic,
		logger:      logger,
		now:         time.Now,
	}
}

// GetProduct is the public "view a product" path, so it also records the view.
func (u *ProductUsecase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := u.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	ev := model.ProductViewEvent{ProductID: p.ID, ProductName: p.Name, Timestamp: u.now().UnixMilli()}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.trackView(ev)
	}()
	return p, nil
}

// Close waits for in-flight view tracking.
func (u *ProductUsecase) Close() {
	u.wg.Wait()
}

func (u *ProductUsecase) trackView(ev model.ProductViewEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := u.productRepo.IncrementViewCount(ctx, ev.ProductID); err != nil {
		u.logger.Warn("failed to increment views", zap.String("product_id", ev.ProductID), zap.Error(err))
	}
	if u.events == nil {
		return
	}
	if err := u.events.Publish(ctx, u.viewTopic, ev); err != nil {
		u.logger.Warn("failed to publish view event", zap.String("product_id", ev.ProductID), zap.Error(err))
	}
}
