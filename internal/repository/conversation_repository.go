package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository struct {
	*base.Repository
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{Repository: base.NewRepository(pool)}
}

const conversationColumns = `id, participant_a, participant_b, created_at`

// GetOrCreate возвращает диалог пары, создавая его при отсутствии.
// Гонку двух первых контактов разрешает уникальное ограничение на пару.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, participantA, participantB int64) (*model.Conversation, bool, error) {
	a, b := model.CanonicalPair(participantA, participantB)

	insert := `
		INSERT INTO conversations (participant_a, participant_b)
		VALUES ($1, $2)
		ON CONFLICT (participant_a, participant_b) DO NOTHING
		RETURNING ` + conversationColumns

	conv, err := scanConversation(r.Pool().QueryRow(ctx, insert, a, b))
	if err == nil {
		return conv, true, nil
	}
	if !base.IsNotFound(err) {
		return nil, false, fmt.Errorf("insert conversation: %w", err)
	}

	selectQuery := `SELECT ` + conversationColumns + ` FROM conversations WHERE participant_a = $1 AND participant_b = $2`

	conv, err = scanConversation(r.Pool().QueryRow(ctx, selectQuery, a, b))
	if err != nil {
		return nil, false, fmt.Errorf("select conversation: %w", err)
	}

	return conv, false, nil
}

// GetByID получает диалог по ID
func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conv, err := scanConversation(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return conv, nil
}

// ListByParticipant диалоги пользователя
func (r *ConversationRepository) ListByParticipant(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY id
	`

	rows, err := r.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var conv model.Conversation
	if err := row.Scan(&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}
