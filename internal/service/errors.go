package service

import "errors"

var (
	ErrSlotNotFound         = errors.New("slot not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotTutor             = errors.New("user is not a tutor")
	ErrSelfConversation     = errors.New("cannot open a conversation with yourself")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant of the conversation")
	ErrEmptyMessage         = errors.New("message body is empty")
	ErrUnauthenticated      = errors.New("no authenticated user")

	// ErrPersistFailed сбой хранилища; операцию можно безопасно повторить
	ErrPersistFailed = errors.New("persistence failed")
)
