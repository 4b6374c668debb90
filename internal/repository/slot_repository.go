package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

const slotColumns = `id, owner_id, day, start_time, end_time, student_id, COALESCE(batch_id::text, ''), created_at`

// ReplaceOpenSlots в одной транзакции удаляет свободные слоты владельца и вставляет новые.
// Занятые слоты не трогаются; кандидаты, совпадающие с ними по интервалу, пропускаются.
func (r *SlotRepository) ReplaceOpenSlots(ctx context.Context, ownerID int64, slots []*model.TimeSlot) ([]*model.TimeSlot, int64, error) {
	var (
		inserted []*model.TimeSlot
		deleted  int64
	)

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		// Сериализуем перегенерации одного владельца
		var lockedID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, ownerID).Scan(&lockedID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		var err error
		deleted, err = base.ExecAffected(ctx, tx,
			`DELETE FROM time_slots WHERE owner_id = $1 AND student_id IS NULL`, ownerID)
		if err != nil {
			return fmt.Errorf("delete open slots: %w", err)
		}

		query := `
			INSERT INTO time_slots (owner_id, day, start_time, end_time, batch_id)
			VALUES ($1, $2, $3, $4, NULLIF($5::text, '')::uuid)
			ON CONFLICT (owner_id, day, start_time, end_time) DO NOTHING
			RETURNING id, created_at
		`

		for _, slot := range slots {
			err := tx.QueryRow(ctx, query,
				ownerID,
				toPgDate(slot.Day),
				toPgTime(slot.StartTime),
				toPgTime(slot.EndTime),
				slot.BatchID,
			).Scan(&slot.ID, &slot.CreatedAt)

			if err != nil {
				if base.IsNotFound(err) {
					continue // Интервал уже занят
				}
				return fmt.Errorf("insert slot: %w", err)
			}

			slot.OwnerID = ownerID
			slot.StudentID = nil
			inserted = append(inserted, slot)
		}

		return nil
	})

	if err != nil {
		return nil, 0, fmt.Errorf("replace open slots: %w", err)
	}

	return inserted, deleted, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`

	slot, err := scanSlot(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}

	return slot, nil
}

// AssignStudent занимает слот, если он свободен и студент не владелец.
// Возвращает nil, если условие не выполнено.
func (r *SlotRepository) AssignStudent(ctx context.Context, slotID, studentID int64) (*model.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET student_id = $2
		WHERE id = $1 AND student_id IS NULL AND owner_id <> $2
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.Pool().QueryRow(ctx, query, slotID, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("assign student: %w", err)
	}

	return slot, nil
}

// ClearStudent освобождает слот, если он занят и actor - владелец или текущий студент.
// Возвращает nil, если условие не выполнено.
func (r *SlotRepository) ClearStudent(ctx context.Context, slotID, actorID int64) (*model.TimeSlot, error) {
	query := `
		UPDATE time_slots
		SET student_id = NULL
		WHERE id = $1 AND student_id IS NOT NULL AND (owner_id = $2 OR student_id = $2)
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.Pool().QueryRow(ctx, query, slotID, actorID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("clear student: %w", err)
	}

	return slot, nil
}

// ListByOwner слоты учителя, при onlyOpen - только свободные
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID int64, onlyOpen bool) ([]*model.TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE owner_id = $1 AND (NOT $2 OR student_id IS NULL)
		ORDER BY day, start_time, id
	`

	return r.list(ctx, query, ownerID, onlyOpen)
}

// ListByStudent слоты, занятые студентом
func (r *SlotRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE student_id = $1
		ORDER BY day, start_time, id
	`

	return r.list(ctx, query, studentID)
}

// CountByState количество свободных и занятых слотов
func (r *SlotRepository) CountByState(ctx context.Context) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE student_id IS NULL),
			COUNT(*) FILTER (WHERE student_id IS NOT NULL)
		FROM time_slots
	`

	var open, booked int64
	if err := r.Pool().QueryRow(ctx, query).Scan(&open, &booked); err != nil {
		return 0, 0, fmt.Errorf("count slots: %w", err)
	}

	return open, booked, nil
}

func (r *SlotRepository) list(ctx context.Context, query string, args ...any) ([]*model.TimeSlot, error) {
	rows, err := r.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

func scanSlot(row rowScanner) (*model.TimeSlot, error) {
	var (
		slot       model.TimeSlot
		day        pgtype.Date
		start, end pgtype.Time
	)

	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&day,
		&start,
		&end,
		&slot.StudentID,
		&slot.BatchID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.Day = model.DayOf(day.Time)
	slot.StartTime = fromPgTime(start)
	slot.EndTime = fromPgTime(end)

	return &slot, nil
}

func toPgDate(d model.Day) pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func toPgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 1_000_000, Valid: true}
}

func fromPgTime(t pgtype.Time) model.TimeOfDay {
	return model.TimeOfDay(t.Microseconds / 1_000_000)
}
