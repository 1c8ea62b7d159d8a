package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivift-connect/internal/domain"
)

type presenceStub map[string]bool

func (p presenceStub) IsOnline(identity string) bool { return p[identity] }

func TestSyncReconciliationPayload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)
	e.createUser(t, bob)
	e.createUser(t, carol)

	e.makeFriends(t, alice, bob)

	// Carol's request to alice is still pending, and alice has an
	// outgoing request of her own.
	changed, err := e.rels.SendRequest(ctx, carol, alice)
	require.NoError(t, err)
	require.True(t, changed)
	e.createUser(t, "dan@rivift.net")
	changed, err = e.rels.SendRequest(ctx, alice, "dan@rivift.net")
	require.NoError(t, err)
	require.True(t, changed)

	// Two unread messages from bob.
	for _, body := range []string{"c1", "c2"} {
		_, err := e.convs.Append(ctx, bob, alice, body)
		require.NoError(t, err)
	}

	resp, err := e.users.Sync(ctx, alice, presenceStub{bob: true})
	require.NoError(t, err)

	require.Len(t, resp.Friends, 1)
	friend := resp.Friends[0]
	assert.Equal(t, bob, friend.Identity)
	assert.True(t, friend.Online)
	assert.Equal(t, 2, friend.UnreadCount)

	assert.Equal(t, []string{carol}, resp.Requests)
	assert.Equal(t, []string{"dan@rivift.net"}, resp.SentRequests)
}

func TestSyncEmptyGraph(t *testing.T) {
	e := newEnv(t)
	e.createUser(t, alice)

	resp, err := e.users.Sync(context.Background(), alice, presenceStub{})
	require.NoError(t, err)
	assert.Empty(t, resp.Friends)
	assert.NotNil(t, resp.Requests)
	assert.NotNil(t, resp.SentRequests)
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createUser(t, alice)

	name := "Alice"
	icon := "data:image/png;base64,xyz"
	err := e.users.UpdateProfile(ctx, alice, domain.ProfileUpdate{
		DisplayName: &name,
		Icon:        &icon,
	})
	require.NoError(t, err)

	u, err := e.users.Get(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Alice", u.DisplayName)
	assert.Equal(t, icon, u.Icon)

	// Nil fields leave values untouched.
	err = e.users.UpdateProfile(ctx, alice, domain.ProfileUpdate{})
	require.NoError(t, err)
	u, err = e.users.Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.DisplayName)
}
