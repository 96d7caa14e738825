package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"bargain-backend/config"
	"bargain-backend/controller"
	"bargain-backend/dao"
	"bargain-backend/db"
	"bargain-backend/pkg/mq"
	"bargain-backend/pkg/notify"
	"bargain-backend/pkg/phrasebook"
	"bargain-backend/pkg/predictor"
	"bargain-backend/usecase"
)

type app struct {
	db          *sql.DB
	model       *predictor.Model
	products    *usecase.ProductUsecase
	negotiation *usecase.NegotiationUsecase
	trainer     *usecase.Trainer
	handlers    controller.Handlers
	closers     []func() error
	logger      *zap.Logger
}

// outbound is both ends of the per-user decision channel.
type outbound interface {
	usecase.Notifier
	controller.Subscriber
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*sql.DB, error) {
	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))
	if migrate {
		if err := db.Migrate(ctx, conn, logger); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func newModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) *predictor.Model {
	return predictor.New(ctx,
		predictor.WithStore(predictor.NewFileStore(cfg.Model.Path)),
		predictor.WithLogger(logger),
	)
}

func wireApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*app, error) {
	conn, err := openStore(ctx, cfg, logger, migrate)
	if err != nil {
		return nil, err
	}
	a := &app{db: conn, logger: logger}
	a.closers = append(a.closers, conn.Close)

	phrases, err := phrasebook.New(phrasebook.NewSeededPicker(rand64()))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("wire phrasebook: %w", err)
	}

	out, err := wireOutbound(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := out.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	mqClient, err := mq.Start(cfg.RocketMQ.NameServers, cfg.RocketMQ.MaxRetries, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	var negotiationEvents, viewEvents usecase.EventPublisher
	if mqClient != nil {
		a.closers = append(a.closers, mqClient.Close)
		negotiationEvents = mq.NewProducer(mqClient, mq.TagNegotiation)
		viewEvents = mq.NewProducer(mqClient, mq.TagProductView)
	}

	productRepo := dao.NewProductRepository(conn)
	trainingRepo := dao.NewTrainingRepository(conn)

	a.model = newModel(ctx, cfg, logger)
	a.products = usecase.NewProductUsecase(productRepo, viewEvents, cfg.RocketMQ.Topics.ProductView, logger)
	a.negotiation = usecase.NewNegotiationUsecase(
		productRepo,
		dao.NewSessionRepository(conn),
		dao.NewTurnRepository(conn),
		trainingRepo,
		usecase.NewPolicy(a.model, phrases),
		phrases,
		logger,
		usecase.WithNotifier(out),
		usecase.WithEvents(negotiationEvents, cfg.RocketMQ.Topics.Negotiation),
	)
	a.trainer = usecase.NewTrainer(trainingRepo, a.model, logger)

	a.handlers = controller.Handlers{
		Product: controller.NewProductController(a.products, logger),
		Bargain: controller.NewBargainController(a.negotiation, a.trainer, logger),
		WS:      controller.NewWSController(a.negotiation, out, logger),
	}
	return a, nil
}

// wireOutbound uses Redis pub/sub when configured so any instance can reach the user's socket.
func wireOutbound(cfg *config.Config, logger *zap.Logger) (outbound, error) {
	if cfg.Redis.Addr == "" {
		return notify.NewHub(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	broker, err := notify.NewRedisBroker(client, cfg.Redis.ChannelPrefix, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return broker, nil
}

// Close drains background telemetry, then releases resources in reverse order.
func (a *app) Close() {
	if a.products != nil {
		a.products.Close()
	}
	if a.negotiation != nil {
		a.negotiation.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}
