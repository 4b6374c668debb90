package state

import (
	"sync"
	"time"
)

// Manager хранит состояния пользователей бота в памяти процесса.
// Состояние, не обновлявшееся дольше ttl, считается сброшенным.
type Manager struct {
	mu     sync.RWMutex
	states map[int64]UserData // telegramID -> UserData
	ttl    time.Duration
	now    func() time.Time
}

// NewManager создаёт новый менеджер состояний; ttl <= 0 отключает истечение
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		states: make(map[int64]UserData),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get получает данные пользователя
func (sm *Manager) Get(telegramID int64) UserData {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	data, exists := sm.states[telegramID]
	if !exists || sm.expired(data) {
		return UserData{}
	}
	return data
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	return sm.Get(telegramID).State
}

// SetState устанавливает состояние без данных диалога
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.Set(telegramID, UserData{State: state})
}

// Set сохраняет состояние и данные пользователя
func (sm *Manager) Set(telegramID int64, data UserData) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if data.State == StateNone {
		delete(sm.states, telegramID)
		return
	}

	data.UpdatedAt = sm.now()
	sm.states[telegramID] = data
}

// Touch продлевает жизнь текущего состояния
func (sm *Manager) Touch(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if data, exists := sm.states[telegramID]; exists {
		data.UpdatedAt = sm.now()
		sm.states[telegramID] = data
	}
}

// ClearState очищает состояние и данные пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

func (sm *Manager) expired(data UserData) bool {
	return sm.ttl > 0 && sm.now().Sub(data.UpdatedAt) > sm.ttl
}
