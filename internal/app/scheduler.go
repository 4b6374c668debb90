package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SlotCounter источник счётчиков слотов
type SlotCounter interface {
	SlotCounts(ctx context.Context) (int64, int64, error)
}

// SubscriberCounter источник числа активных подписок
type SubscriberCounter interface {
	SubscriberCount() int
}

// GaugeSink принимает значения для метрик
type GaugeSink interface {
	SetSlotCounts(open, booked int64)
	SetSubscribers(n int)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron        *cron.Cron
	spec        string
	slots       SlotCounter
	subscribers SubscriberCounter
	sink        GaugeSink
	logger      *zap.Logger
}

// NewScheduler создаёт новый планировщик
func NewScheduler(spec string, slots SlotCounter, subscribers SubscriberCounter, sink GaugeSink, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		spec:        spec,
		slots:       slots,
		subscribers: subscribers,
		sink:        sink,
		logger:      logger,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.String("spec", s.spec))

	// Первый запуск сразу при старте
	s.refreshGauges(ctx)

	_, err := s.cron.AddFunc(s.spec, func() {
		s.refreshGauges(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule gauge refresh: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop останавливает фоновые задачи и ждёт завершения текущих
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// refreshGauges обновляет gauge-метрики слотов и подписчиков
func (s *Scheduler) refreshGauges(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	open, booked, err := s.slots.SlotCounts(ctx)
	if err != nil {
		s.logger.Error("Failed to count slots", zap.Error(err))
	} else {
		s.sink.SetSlotCounts(open, booked)
	}

	s.sink.SetSubscribers(s.subscribers.SubscriberCount())

	s.logger.Debug("Gauges refreshed",
		zap.Int64("open_slots", open),
		zap.Int64("booked_slots", booked),
	)
}
