package model

import "time"

// Conversation диалог двух пользователей.
// Участники хранятся в каноническом порядке: ParticipantA < ParticipantB.
type Conversation struct {
	ID           int64     `json:"id"`
	ParticipantA int64     `json:"participant_a"`
	ParticipantB int64     `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanonicalPair упорядочивает пару идентификаторов (меньший первым)
func CanonicalPair(x, y int64) (int64, int64) {
	if x < y {
		return x, y
	}
	return y, x
}

// HasParticipant проверяет что пользователь участвует в диалоге
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Peer возвращает собеседника пользователя
func (c *Conversation) Peer(userID int64) int64 {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}
