package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WeeklyGrid недельная сетка, присланная учителем
type WeeklyGrid struct {
	Days []DayEntry `json:"days"`
}

// DayEntry один день сетки. Пустая Date - день игнорируется.
type DayEntry struct {
	Weekday string       `json:"weekday"`
	Date    string       `json:"date"`
	Slots   []RangeInput `json:"slots"`
}

// RangeInput интервал в виде строк HH:MM
type RangeInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GenerateResult итог генерации расписания
type GenerateResult struct {
	BatchID     string            `json:"batch_id"`
	Created     int               `json:"created_count"`
	Skipped     int               `json:"skipped_count"`
	RemovedOpen int64             `json:"removed_open_count"`
	Slots       []*model.TimeSlot `json:"slots"`
}

type ScheduleService struct {
	userRepo UserStore
	slotRepo SlotStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewScheduleService(
	userRepo UserStore,
	slotRepo SlotStore,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ScheduleService {
	return &ScheduleService{
		userRepo: userRepo,
		slotRepo: slotRepo,
		logger:   logger,
		metrics:  m,
	}
}

type slotKey struct {
	day        string
	start, end model.TimeOfDay
}

// GenerateSchedule заменяет свободную часть расписания учителя новой сеткой.
// Все свободные слоты владельца удаляются (даже для дней, не вошедших в сетку),
// занятые слоты сохраняются. Невалидные интервалы пропускаются и учитываются в Skipped.
func (s *ScheduleService) GenerateSchedule(ctx context.Context, ownerID int64, grid WeeklyGrid) (*GenerateResult, error) {
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w: %w", ErrPersistFailed, err)
	}

	if owner == nil {
		return nil, ErrUserNotFound
	}

	if !owner.IsTutor {
		return nil, ErrNotTutor
	}

	batchID := uuid.New()
	result := &GenerateResult{BatchID: batchID.String()}

	// Сначала валидируем всю сетку, затем пишем одной транзакцией
	seen := make(map[slotKey]bool)
	var candidates []*model.TimeSlot

	for _, entry := range grid.Days {
		if entry.Date == "" {
			continue
		}

		day, err := model.ParseDay(entry.Date)
		if err != nil {
			s.logger.Warn("Skipping day with malformed date",
				zap.Int64("owner_id", ownerID),
				zap.String("date", entry.Date),
				zap.Int("pairs", len(entry.Slots)),
				zap.Error(err))
			result.Skipped += len(entry.Slots)
			continue
		}

		if entry.Weekday != "" {
			if wd, ok := model.ParseWeekday(entry.Weekday); !ok || wd != day.Weekday() {
				s.logger.Warn("Weekday does not match date, using date",
					zap.Int64("owner_id", ownerID),
					zap.String("weekday", entry.Weekday),
					zap.String("date", day.String()))
			}
		}

		for _, pair := range entry.Slots {
			start, end, err := parseRange(pair)
			if err != nil {
				s.logger.Debug("Skipping invalid range",
					zap.Int64("owner_id", ownerID),
					zap.String("date", day.String()),
					zap.String("start", pair.Start),
					zap.String("end", pair.End),
					zap.Error(err))
				result.Skipped++
				continue
			}

			key := slotKey{day: day.String(), start: start, end: end}
			if seen[key] {
				result.Skipped++
				continue
			}
			seen[key] = true

			candidates = append(candidates, &model.TimeSlot{
				OwnerID:   ownerID,
				Day:       day,
				StartTime: start,
				EndTime:   end,
				BatchID:   batchID.String(),
			})
		}
	}

	inserted, deleted, err := s.slotRepo.ReplaceOpenSlots(ctx, ownerID, candidates)
	if err != nil {
		s.logger.Error("Failed to replace open slots",
			zap.Int64("owner_id", ownerID),
			zap.Error(err))
		return nil, fmt.Errorf("replace open slots: %w: %w", ErrPersistFailed, err)
	}

	// Совпавшие с сохранёнными занятыми слотами не вставляются
	result.Skipped += len(candidates) - len(inserted)
	result.Created = len(inserted)
	result.RemovedOpen = deleted
	result.Slots = inserted

	s.metrics.ObserveGeneration(result.Created, result.Skipped)

	s.logger.Info("Schedule generated",
		zap.Int64("owner_id", ownerID),
		zap.String("batch_id", result.BatchID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int64("removed_open", deleted),
	)

	return result, nil
}

func parseRange(pair RangeInput) (model.TimeOfDay, model.TimeOfDay, error) {
	start, err := model.ParseTimeOfDay(pair.Start)
	if err != nil {
		return 0, 0, err
	}

	end, err := model.ParseTimeOfDay(pair.End)
	if err != nil {
		return 0, 0, err
	}

	if end <= start {
		return 0, 0, fmt.Errorf("end time %s must be after start time %s", end, start)
	}

	return start, end, nil
}
