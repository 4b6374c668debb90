package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"go.uber.org/zap"
)

type ClaimOutcome string

const (
	ClaimSuccess          ClaimOutcome = "success"
	ClaimAlreadyBooked    ClaimOutcome = "already_booked"
	ClaimOwnerCannotClaim ClaimOutcome = "owner_cannot_claim"
)

type ReleaseOutcome string

const (
	ReleaseSuccess      ReleaseOutcome = "success"
	ReleaseNotBooked    ReleaseOutcome = "not_booked"
	ReleaseUnauthorized ReleaseOutcome = "unauthorized"
)

type BookingService struct {
	slotRepo SlotStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewBookingService(slotRepo SlotStore, logger *zap.Logger, m *metrics.Metrics) *BookingService {
	return &BookingService{
		slotRepo: slotRepo,
		logger:   logger,
		metrics:  m,
	}
}

// ClaimSlot занимает свободный слот для студента.
// Проверка и запись выполняются одним условным обновлением в хранилище,
// поэтому из конкурирующих вызовов успешен ровно один.
func (s *BookingService) ClaimSlot(ctx context.Context, slotID, actorID int64) (ClaimOutcome, error) {
	slot, err := s.slotRepo.AssignStudent(ctx, slotID, actorID)
	if err != nil {
		s.logger.Error("Failed to claim slot",
			zap.Int64("slot_id", slotID),
			zap.Int64("actor_id", actorID),
			zap.Error(err))
		return "", fmt.Errorf("claim slot: %w: %w", ErrPersistFailed, err)
	}

	if slot != nil {
		s.metrics.ObserveClaim(string(ClaimSuccess))
		s.logger.Info("Slot claimed",
			zap.Int64("slot_id", slotID),
			zap.Int64("student_id", actorID),
			zap.Int64("owner_id", slot.OwnerID),
		)
		return ClaimSuccess, nil
	}

	// Условие не выполнено - выясняем причину
	current, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return "", fmt.Errorf("get slot: %w: %w", ErrPersistFailed, err)
	}

	if current == nil {
		return "", ErrSlotNotFound
	}

	outcome := ClaimAlreadyBooked
	if current.OwnerID == actorID {
		outcome = ClaimOwnerCannotClaim
	}

	s.metrics.ObserveClaim(string(outcome))
	s.logger.Info("Slot claim rejected",
		zap.Int64("slot_id", slotID),
		zap.Int64("actor_id", actorID),
		zap.String("outcome", string(outcome)),
	)

	return outcome, nil
}

// ReleaseSlot освобождает занятый слот. Разрешено владельцу и текущему студенту.
func (s *BookingService) ReleaseSlot(ctx context.Context, slotID, actorID int64) (ReleaseOutcome, error) {
	slot, err := s.slotRepo.ClearStudent(ctx, slotID, actorID)
	if err != nil {
		s.logger.Error("Failed to release slot",
			zap.Int64("slot_id", slotID),
			zap.Int64("actor_id", actorID),
			zap.Error(err))
		return "", fmt.Errorf("release slot: %w: %w", ErrPersistFailed, err)
	}

	if slot != nil {
		s.metrics.ObserveRelease(string(ReleaseSuccess))
		s.logger.Info("Slot released",
			zap.Int64("slot_id", slotID),
			zap.Int64("actor_id", actorID),
			zap.Int64("owner_id", slot.OwnerID),
		)
		return ReleaseSuccess, nil
	}

	current, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return "", fmt.Errorf("get slot: %w: %w", ErrPersistFailed, err)
	}

	if current == nil {
		return "", ErrSlotNotFound
	}

	outcome := ReleaseNotBooked
	if current.IsBooked() && current.OwnerID != actorID && *current.StudentID != actorID {
		outcome = ReleaseUnauthorized
	}

	s.metrics.ObserveRelease(string(outcome))
	s.logger.Info("Slot release rejected",
		zap.Int64("slot_id", slotID),
		zap.Int64("actor_id", actorID),
		zap.String("outcome", string(outcome)),
	)

	return outcome, nil
}

// ListSlots возвращает слоты пользователя: для учителя - его слоты, для студента - занятые им.
// Порядок (day, start_time).
func (s *BookingService) ListSlots(ctx context.Context, userID int64, role model.Role) ([]*model.TimeSlot, error) {
	var (
		slots []*model.TimeSlot
		err   error
	)

	switch role {
	case model.RoleTutor:
		slots, err = s.slotRepo.ListByOwner(ctx, userID, false)
	default:
		slots, err = s.slotRepo.ListByStudent(ctx, userID)
	}

	if err != nil {
		return nil, fmt.Errorf("list slots: %w: %w", ErrPersistFailed, err)
	}

	return slots, nil
}

// ListOpenSlots возвращает свободные слоты учителя для записи
func (s *BookingService) ListOpenSlots(ctx context.Context, tutorID int64) ([]*model.TimeSlot, error) {
	slots, err := s.slotRepo.ListByOwner(ctx, tutorID, true)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w: %w", ErrPersistFailed, err)
	}
	return slots, nil
}

// GetSlot получает слот по ID
func (s *BookingService) GetSlot(ctx context.Context, slotID int64) (*model.TimeSlot, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w: %w", ErrPersistFailed, err)
	}

	if slot == nil {
		return nil, ErrSlotNotFound
	}

	return slot, nil
}

// SlotCounts количество свободных и занятых слотов
func (s *BookingService) SlotCounts(ctx context.Context) (int64, int64, error) {
	return s.slotRepo.CountByState(ctx)
}
