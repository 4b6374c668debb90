package model

import "time"

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// LessMessage порядок выдачи истории: created_at, затем id
func LessMessage(a, b *Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// MessageEvent событие о новом сообщении для подписчиков диалога
type MessageEvent struct {
	EventID           string    `json:"event_id"`
	ConversationID    int64     `json:"conversation_id"`
	MessageID         int64     `json:"message_id"`
	SenderID          int64     `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Body              string    `json:"body"`
	CreatedAt         time.Time `json:"created_at"`
}
