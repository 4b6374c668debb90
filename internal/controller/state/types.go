package state

import "time"

// UserState текущее состояние пользователя в диалоге с ботом
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Учитель вводит недельную сетку
	StateEnteringSchedule UserState = "entering_schedule"

	// Пользователь переписывается в диалоге; обычный текст уходит собеседнику
	StateChatting UserState = "chatting"
)

// UserData состояние и данные текущего диалога пользователя
type UserData struct {
	State          UserState
	ConversationID int64
	PeerName       string
	UpdatedAt      time.Time
}
