package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/repository/memory"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"go.uber.org/zap"
)

// Рисует неделю тестового расписания через настоящие сервисы на хранилище в памяти
func main() {
	ctx := context.Background()
	logger := zap.NewNop()

	store := memory.NewStore()
	users := service.NewUserService(store.Users(), logger)
	schedule := service.NewScheduleService(store.Users(), store.Slots(), logger, nil)
	booking := service.NewBookingService(store.Slots(), logger, nil)

	tutor, err := users.RegisterUser(ctx, 1, "tutor", "Анна", "Учитель")
	if err != nil {
		fail(err)
	}
	if _, err := users.MakeTutor(ctx, tutor.ID); err != nil {
		fail(err)
	}

	student, err := users.RegisterUser(ctx, 2, "student", "Пётр", "")
	if err != nil {
		fail(err)
	}

	weekStart := formatting.WeekStart(model.DayOf(time.Now()))

	grid := service.WeeklyGrid{}
	for i, ranges := range [][]service.RangeInput{
		{{Start: "09:00", End: "10:00"}, {Start: "14:00", End: "15:00"}},
		{{Start: "10:00", End: "11:30"}},
		{{Start: "09:00", End: "10:00"}, {Start: "15:00", End: "16:00"}},
		nil,
		{{Start: "11:00", End: "12:00"}, {Start: "13:00", End: "14:00"}},
	} {
		if len(ranges) == 0 {
			continue
		}
		day := weekStart.AddDays(i)
		grid.Days = append(grid.Days, service.DayEntry{
			Date:    day.String(),
			Weekday: day.Weekday().String(),
			Slots:   ranges,
		})
	}

	result, err := schedule.GenerateSchedule(ctx, tutor.ID, grid)
	if err != nil {
		fail(err)
	}

	// Занимаем каждый второй слот
	for i, slot := range result.Slots {
		if i%2 == 1 {
			if _, err := booking.ClaimSlot(ctx, slot.ID, student.ID); err != nil {
				fail(err)
			}
		}
	}

	slots, err := booking.ListSlots(ctx, tutor.ID, model.RoleTutor)
	if err != nil {
		fail(err)
	}

	imageData, err := formatting.GenerateWeekImage(weekStart, slots, map[int64]string{student.ID: student.DisplayName}, time.Now())
	if err != nil {
		fail(err)
	}

	filename := "week.png"
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	if err := os.WriteFile(filename, imageData, 0644); err != nil {
		fail(err)
	}

	fmt.Printf("✅ Изображение успешно сохранено в %s\n", filename)
	fmt.Printf("📅 Неделя: %s - %s\n", formatting.FormatDay(weekStart), formatting.FormatDay(weekStart.AddDays(6)))
	fmt.Printf("📊 Слотов: %d (пропущено %d)\n", len(slots), result.Skipped)
}

func fail(err error) {
	fmt.Printf("Ошибка: %v\n", err)
	os.Exit(1)
}
