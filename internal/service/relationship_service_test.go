package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice@rivift.net"
	bob   = "bob@rivift.net"
	carol = "carol@rivift.net"
)

func TestSendAndAcceptRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)

	changed, err := e.rels.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, changed)

	// Reciprocal pending edges.
	relA, err := e.rels.Relationships(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, relA.SentRequests)
	assert.Empty(t, relA.Friends)

	relB, err := e.rels.Relationships(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, relB.Requests)

	changed, err = e.rels.AcceptRequest(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, changed)

	// Symmetric friendship, no pending edges on either side.
	relA, err = e.rels.Relationships(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, relA.Friends)
	assert.Empty(t, relA.Requests)
	assert.Empty(t, relA.SentRequests)

	relB, err = e.rels.Relationships(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, relB.Friends)
	assert.Empty(t, relB.Requests)
	assert.Empty(t, relB.SentRequests)
}

func TestSendRequestIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)

	changed, err := e.rels.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, changed)

	// Duplicate delivery of the same event changes nothing.
	changed, err = e.rels.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, changed)

	relB, err := e.rels.Relationships(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, relB.Requests)
}

func TestSendRequestNoOps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)

	t.Run("ToSelf", func(t *testing.T) {
		changed, err := e.rels.SendRequest(ctx, alice, alice)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		changed, err := e.rels.SendRequest(ctx, alice, "nobody@rivift.net")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("ReciprocalPending", func(t *testing.T) {
		changed, err := e.rels.SendRequest(ctx, alice, bob)
		require.NoError(t, err)
		assert.True(t, changed)

		// The reverse direction is already covered by the pending edge.
		changed, err = e.rels.SendRequest(ctx, bob, alice)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("AlreadyFriends", func(t *testing.T) {
		changed, err := e.rels.AcceptRequest(ctx, bob, alice)
		require.NoError(t, err)
		require.True(t, changed)

		changed, err = e.rels.SendRequest(ctx, alice, bob)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestCreateRequestGuardsShareTransaction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)
	e.createUser(t, carol)

	// The guarded insert refuses when the reverse direction is already
	// pending, so two reciprocal sends can never both persist.
	created, err := e.relRepo.CreateRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.relRepo.CreateRequest(ctx, bob, alice)
	require.NoError(t, err)
	assert.False(t, created)

	relB, err := e.rels.Relationships(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, relB.Requests)
	assert.Empty(t, relB.SentRequests)

	// Same refusal once the pair is friends.
	changed, err := e.rels.AcceptRequest(ctx, bob, alice)
	require.NoError(t, err)
	require.True(t, changed)

	created, err = e.relRepo.CreateRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, created)

	// A duplicate of the same direction reports unchanged.
	created, err = e.relRepo.CreateRequest(ctx, alice, carol)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = e.relRepo.CreateRequest(ctx, alice, carol)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAcceptWithoutRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)

	changed, err := e.rels.AcceptRequest(ctx, bob, alice)
	require.NoError(t, err)
	assert.False(t, changed)

	relB, err := e.rels.Relationships(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, relB.Friends)
}

func TestRejectAndCancelRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)
	e.createUser(t, carol)

	t.Run("Reject", func(t *testing.T) {
		changed, err := e.rels.SendRequest(ctx, alice, bob)
		require.NoError(t, err)
		require.True(t, changed)

		changed, err = e.rels.RejectRequest(ctx, bob, alice)
		require.NoError(t, err)
		assert.True(t, changed)

		relA, err := e.rels.Relationships(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, relA.SentRequests)
		assert.Empty(t, relA.Friends)
	})

	t.Run("Cancel", func(t *testing.T) {
		changed, err := e.rels.SendRequest(ctx, alice, carol)
		require.NoError(t, err)
		require.True(t, changed)

		changed, err = e.rels.CancelRequest(ctx, alice, carol)
		require.NoError(t, err)
		assert.True(t, changed)

		relC, err := e.rels.Relationships(ctx, carol)
		require.NoError(t, err)
		assert.Empty(t, relC.Requests)
	})

	t.Run("RejectAbsentIsNoOp", func(t *testing.T) {
		changed, err := e.rels.RejectRequest(ctx, bob, alice)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestDeleteFriendDropsConversation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)
	e.makeFriends(t, alice, bob)

	msg, err := e.convs.Append(ctx, alice, bob, "ciphertext-1")
	require.NoError(t, err)
	require.NotNil(t, msg)

	changed, err := e.rels.DeleteFriend(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, changed)

	relA, err := e.rels.Relationships(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, relA.Friends)
	relB, err := e.rels.Relationships(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, relB.Friends)

	// The shared conversation is unrecoverable.
	history, err := e.convs.History(ctx, alice, bob, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	// A duplicate delete is a no-op.
	changed, err = e.rels.DeleteFriend(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, changed)
}
