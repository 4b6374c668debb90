package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/api"
	"github.com/Freeeeeet/tutor_booking/internal/app"
	"github.com/Freeeeeet/tutor_booking/internal/auth"
	"github.com/Freeeeeet/tutor_booking/internal/config"
	"github.com/Freeeeeet/tutor_booking/internal/controller"
	"github.com/Freeeeeet/tutor_booking/internal/controller/handlers"
	"github.com/Freeeeeet/tutor_booking/internal/controller/state"
	"github.com/Freeeeeet/tutor_booking/internal/fanout"
	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/repository"
	"github.com/Freeeeeet/tutor_booking/internal/repository/memory"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	chatStateTTL    = 24 * time.Hour
)

type stores struct {
	users         service.UserStore
	slots         service.SlotStore
	conversations service.ConversationStore
	messages      service.MessageStore
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting tutor booking",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("telegram", cfg.TelegramToken != ""))

	shutdownTracing, err := app.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Failed to shutdown tracing", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// Рассылка событий: локальные подписчики, затем опциональные Redis и Kafka
	registry := fanout.NewRegistry(cfg.SubscriberBuffer, logger, m)
	defer registry.Close()

	notifier := fanout.Multi{registry}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		relay := fanout.NewRedisRelay(client, cfg.RedisChannel, registry, logger)
		// Relay доставляет события других инстансов, свои он пропускает
		notifier = append(notifier, relay)

		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis relay stopped", zap.Error(err))
			}
		}()
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := fanout.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("Failed to close kafka writer", zap.Error(err))
			}
		}()
		notifier = append(notifier, kafkaPublisher)
	}

	userService := service.NewUserService(st.users, logger)
	scheduleService := service.NewScheduleService(st.users, st.slots, logger, m)
	bookingService := service.NewBookingService(st.slots, logger, m)
	conversationService := service.NewConversationService(st.users, st.conversations, logger, m)
	messageService := service.NewMessageService(st.users, st.conversations, st.messages, notifier, logger, m)

	scheduler := app.NewScheduler(cfg.StatsCron, bookingService, registry, m, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			UserService:         userService,
			ScheduleService:     scheduleService,
			BookingService:      bookingService,
			ConversationService: conversationService,
			MessageService:      messageService,
			Registry:            registry,
			Tokens:              tokens,
			Gatherer:            reg,
			Logger:              logger,
		}),
		// WriteTimeout не задан: /events держит соединение открытым
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.TelegramToken != "" {
		botController, err := controller.NewBotController(cfg.TelegramToken, handlers.Deps{
			UserService:         userService,
			ScheduleService:     scheduleService,
			BookingService:      bookingService,
			ConversationService: conversationService,
			MessageService:      messageService,
			Registry:            registry,
			Tokens:              tokens,
			StateManager:        state.NewManager(chatStateTTL),
			Logger:              logger,
		}, logger)
		if err != nil {
			return err
		}
		defer botController.Close()

		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}

		go botController.Start(ctx)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Закрываем подписки, чтобы SSE-обработчики завершились до Shutdown
	registry.Close()

	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")

		mem := memory.NewStore()
		return &stores{
			users:         mem.Users(),
			slots:         mem.Slots(),
			conversations: mem.Conversations(),
			messages:      mem.Messages(),
			close:         func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		users:         repository.NewUserRepository(pool),
		slots:         repository.NewSlotRepository(pool),
		conversations: repository.NewConversationRepository(pool),
		messages:      repository.NewMessageRepository(pool),
		close:         pool.Close,
	}, nil
}
