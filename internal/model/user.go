package model

import "time"

// Role роль пользователя в маркетплейсе
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

type User struct {
	ID          int64     `json:"id"`
	TelegramID  *int64    `json:"telegram_id,omitempty"` // nil для пользователей без Telegram
	DisplayName string    `json:"display_name"`
	IsTutor     bool      `json:"is_tutor"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role возвращает роль пользователя
func (u *User) Role() Role {
	if u.IsTutor {
		return RoleTutor
	}
	return RoleStudent
}

// ParseRole разбирает роль из строки, пустая строка не допускается
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleTutor:
		return RoleTutor, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}
