// Package memory хранилище в памяти процесса с теми же гарантиями атомарности,
// что и Postgres-репозитории. Используется в тестах и в режиме STORAGE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/model"
)

// Store общее состояние; один мьютекс играет роль транзакции
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	users         map[int64]*model.User
	slots         map[int64]*model.TimeSlot
	conversations map[int64]*model.Conversation
	pairs         map[[2]int64]int64
	messages      map[int64][]*model.Message

	nextUserID, nextSlotID, nextConversationID, nextMessageID int64
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[int64]*model.User),
		slots:         make(map[int64]*model.TimeSlot),
		conversations: make(map[int64]*model.Conversation),
		pairs:         make(map[[2]int64]int64),
		messages:      make(map[int64][]*model.Message),
	}
}

// WithClock подменяет источник времени
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Users() *UserRepository { return &UserRepository{s} }
func (s *Store) Slots() *SlotRepository { return &SlotRepository{s} }
func (s *Store) Conversations() *ConversationRepository { return &ConversationRepository{s} }
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = r.s.now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return errNotFound("user")
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

type SlotRepository struct{ s *Store }

func (r *SlotRepository) ReplaceOpenSlots(_ context.Context, ownerID int64, slots []*model.TimeSlot) ([]*model.TimeSlot, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	var kept []*model.TimeSlot
	for id, slot := range r.s.slots {
		if slot.OwnerID != ownerID {
			continue
		}
		if slot.StudentID == nil {
			delete(r.s.slots, id)
			deleted++
			continue
		}
		kept = append(kept, slot)
	}

	var inserted []*model.TimeSlot
	for _, slot := range slots {
		if containsInterval(kept, slot) {
			continue
		}

		r.s.nextSlotID++
		slot.ID = r.s.nextSlotID
		slot.OwnerID = ownerID
		slot.StudentID = nil
		slot.CreatedAt = r.s.now()

		cp := *slot
		r.s.slots[slot.ID] = &cp
		kept = append(kept, &cp)
		inserted = append(inserted, slot)
	}

	return inserted, deleted, nil
}

func containsInterval(slots []*model.TimeSlot, candidate *model.TimeSlot) bool {
	for _, slot := range slots {
		if slot.SameInterval(candidate) {
			return true
		}
	}
	return false
}

func (r *SlotRepository) GetByID(_ context.Context, id int64) (*model.TimeSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, nil
	}
	return copySlot(slot), nil
}

func (r *SlotRepository) AssignStudent(_ context.Context, slotID, studentID int64) (*model.TimeSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[slotID]
	if !ok || slot.StudentID != nil || slot.OwnerID == studentID {
		return nil, nil
	}

	id := studentID
	slot.StudentID = &id
	return copySlot(slot), nil
}

func (r *SlotRepository) ClearStudent(_ context.Context, slotID, actorID int64) (*model.TimeSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[slotID]
	if !ok || slot.StudentID == nil {
		return nil, nil
	}
	if slot.OwnerID != actorID && *slot.StudentID != actorID {
		return nil, nil
	}

	slot.StudentID = nil
	return copySlot(slot), nil
}

func (r *SlotRepository) ListByOwner(_ context.Context, ownerID int64, onlyOpen bool) ([]*model.TimeSlot, error) {
	return r.list(func(slot *model.TimeSlot) bool {
		return slot.OwnerID == ownerID && (!onlyOpen || slot.StudentID == nil)
	}), nil
}

func (r *SlotRepository) ListByStudent(_ context.Context, studentID int64) ([]*model.TimeSlot, error) {
	return r.list(func(slot *model.TimeSlot) bool {
		return slot.StudentID != nil && *slot.StudentID == studentID
	}), nil
}

func (r *SlotRepository) CountByState(_ context.Context) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var open, booked int64
	for _, slot := range r.s.slots {
		if slot.StudentID == nil {
			open++
		} else {
			booked++
		}
	}
	return open, booked, nil
}

func (r *SlotRepository) list(match func(*model.TimeSlot) bool) []*model.TimeSlot {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.TimeSlot
	for _, slot := range r.s.slots {
		if match(slot) {
			out = append(out, copySlot(slot))
		}
	}
	sort.Slice(out, func(i, j int) bool { return model.LessSlot(out[i], out[j]) })
	return out
}

func copySlot(slot *model.TimeSlot) *model.TimeSlot {
	cp := *slot
	if slot.StudentID != nil {
		id := *slot.StudentID
		cp.StudentID = &id
	}
	return &cp
}

type ConversationRepository struct{ s *Store }

func (r *ConversationRepository) GetOrCreate(_ context.Context, participantA, participantB int64) (*model.Conversation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, b := model.CanonicalPair(participantA, participantB)
	key := [2]int64{a, b}

	if id, ok := r.s.pairs[key]; ok {
		cp := *r.s.conversations[id]
		return &cp, false, nil
	}

	r.s.nextConversationID++
	conv := &model.Conversation{
		ID:           r.s.nextConversationID,
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    r.s.now(),
	}
	r.s.conversations[conv.ID] = conv
	r.s.pairs[key] = conv.ID

	cp := *conv
	return &cp, true, nil
}

func (r *ConversationRepository) GetByID(_ context.Context, id int64) (*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	conv, ok := r.s.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (r *ConversationRepository) ListByParticipant(_ context.Context, userID int64) ([]*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.Conversation
	for _, conv := range r.s.conversations {
		if conv.HasParticipant(userID) {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type MessageRepository struct{ s *Store }

func (r *MessageRepository) Create(_ context.Context, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[msg.ConversationID]; !ok {
		return errNotFound("conversation")
	}

	r.s.nextMessageID++
	msg.ID = r.s.nextMessageID
	msg.CreatedAt = r.s.now()

	cp := *msg
	r.s.messages[msg.ConversationID] = append(r.s.messages[msg.ConversationID], &cp)
	return nil
}

func (r *MessageRepository) ListByConversation(_ context.Context, conversationID int64) ([]*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := r.s.messages[conversationID]
	out := make([]*model.Message, 0, len(stored))
	for _, msg := range stored {
		cp := *msg
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return model.LessMessage(out[i], out[j]) })
	return out, nil
}
