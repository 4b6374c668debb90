package model

import "time"

type SlotState string

const (
	SlotStateOpen   SlotState = "open"
	SlotStateBooked SlotState = "booked"
)

// TimeSlot бронируемый интервал в один календарный день
type TimeSlot struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Day       Day       `json:"day"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	StudentID *int64    `json:"student_id"` // nil - слот свободен
	BatchID   string    `json:"batch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// State возвращает состояние слота
func (s *TimeSlot) State() SlotState {
	if s.StudentID == nil {
		return SlotStateOpen
	}
	return SlotStateBooked
}

// IsBooked проверяет что слот занят студентом
func (s *TimeSlot) IsBooked() bool {
	return s.StudentID != nil
}

// SameInterval проверяет совпадение дня и времени
func (s *TimeSlot) SameInterval(other *TimeSlot) bool {
	return s.Day.Equal(other.Day) && s.StartTime == other.StartTime && s.EndTime == other.EndTime
}

// LessSlot порядок (day, start_time, id) для выдачи списков
func LessSlot(a, b *TimeSlot) bool {
	if !a.Day.Equal(b.Day) {
		return a.Day.Before(b.Day)
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID < b.ID
}
