package registry

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	r := NewRedis(srv.Addr())
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedisMultiDevicePresence(t *testing.T) {
	r := newTestRedis(t)

	r.Register("c1", "u1")
	assert.True(t, r.IsOnline("u1"))
	assert.ElementsMatch(t, []string{"u1"}, r.OnlineUsers())

	r.Register("c2", "u1")
	assert.ElementsMatch(t, []string{"u1"}, r.OnlineUsers())

	r.Unregister("c1")
	assert.True(t, r.IsOnline("u1"))
	assert.ElementsMatch(t, []string{"u1"}, r.OnlineUsers())

	r.Unregister("c2")
	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.OnlineUsers())
}

func TestRedisUnregisterUnknownConnection(t *testing.T) {
	r := newTestRedis(t)
	r.Register("c1", "u1")

	r.Unregister("nope")
	assert.True(t, r.IsOnline("u1"))
	assert.ElementsMatch(t, []string{"u1"}, r.OnlineUsers())
}

func TestRedisDuplicateRegister(t *testing.T) {
	r := newTestRedis(t)

	r.Register("c1", "u1")
	r.Register("c1", "u1")

	r.Unregister("c1")
	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.OnlineUsers())
}

// The online set and the per-user connection sets must agree after any
// interleaving of a device disconnecting with another device of the
// same user connecting.
func TestRedisOnlineSetConsistentAcrossDeviceChurn(t *testing.T) {
	r := newTestRedis(t)

	r.Register("c1", "u1")
	r.Register("c2", "u1")
	r.Unregister("c1")

	require.True(t, r.IsOnline("u1"))
	assert.ElementsMatch(t, []string{"u1"}, r.OnlineUsers())

	r.Register("c3", "u1")
	r.Unregister("c2")
	r.Unregister("c3")

	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.OnlineUsers())
}

func TestRedisMultipleUsers(t *testing.T) {
	r := newTestRedis(t)

	r.Register("c1", "u1")
	r.Register("c2", "u2")
	assert.ElementsMatch(t, []string{"u1", "u2"}, r.OnlineUsers())

	r.Unregister("c1")
	assert.ElementsMatch(t, []string{"u2"}, r.OnlineUsers())
	assert.False(t, r.IsOnline("u1"))
	assert.True(t, r.IsOnline("u2"))
}
