package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLastLoginWins(t *testing.T) {
	r := NewRegistry()

	x := newClient("a@rivift.net", nil)
	y := newClient("a@rivift.net", nil)

	assert.Nil(t, r.SetOnline("a@rivift.net", x))
	assert.True(t, r.IsOnline("a@rivift.net"))

	// A reconnect supersedes; the old handle is handed back.
	prev := r.SetOnline("a@rivift.net", y)
	assert.Same(t, x, prev)

	got, ok := r.Get("a@rivift.net")
	assert.True(t, ok)
	assert.Same(t, y, got)
}

func TestRegistryFencedOffline(t *testing.T) {
	r := NewRegistry()

	x := newClient("a@rivift.net", nil)
	y := newClient("a@rivift.net", nil)

	r.SetOnline("a@rivift.net", x)
	r.SetOnline("a@rivift.net", y)

	// A late disconnect from the superseded connection must not evict
	// the newer login.
	assert.False(t, r.SetOffline("a@rivift.net", x))
	assert.True(t, r.IsOnline("a@rivift.net"))

	assert.True(t, r.SetOffline("a@rivift.net", y))
	assert.False(t, r.IsOnline("a@rivift.net"))

	// Repeated disconnects are no-ops.
	assert.False(t, r.SetOffline("a@rivift.net", y))
}

func TestRegistryOfflineUnknownIdentity(t *testing.T) {
	r := NewRegistry()
	c := newClient("ghost@rivift.net", nil)

	assert.False(t, r.SetOffline("ghost@rivift.net", c))
	assert.False(t, r.IsOnline("ghost@rivift.net"))
	_, ok := r.Get("ghost@rivift.net")
	assert.False(t, ok)
}
