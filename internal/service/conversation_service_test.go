package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenConversation_SymmetricAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1, "Alice", false)
	bob := env.user(t, 2, "Bob", true)
	ctx := context.Background()

	first, err := env.convs.OpenConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	second, err := env.convs.OpenConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Less(t, first.ParticipantA, first.ParticipantB)
	assert.Equal(t, alice.ID, first.ParticipantA)
	assert.Equal(t, bob.ID, first.Peer(alice.ID))
}

func TestOpenConversation_Self(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1, "Alice", false)

	_, err := env.convs.OpenConversation(context.Background(), alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestOpenConversation_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1, "Alice", false)

	_, err := env.convs.OpenConversation(context.Background(), alice.ID, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestOpenConversation_ConcurrentFirstContact(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1, "Alice", false)
	bob := env.user(t, 2, "Bob", false)
	ctx := context.Background()

	const n = 32
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := alice.ID, bob.ID
			if i%2 == 1 {
				x, y = y, x
			}
			conv, err := env.convs.OpenConversation(ctx, x, y)
			assert.NoError(t, err)
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	convs, err := env.convs.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestGetConversation_ParticipantsOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1, "Alice", false)
	bob := env.user(t, 2, "Bob", false)
	eve := env.user(t, 3, "Eve", false)
	ctx := context.Background()

	conv, err := env.convs.OpenConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	got, err := env.convs.GetConversation(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = env.convs.GetConversation(ctx, conv.ID, eve.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = env.convs.GetConversation(ctx, 404, alice.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
