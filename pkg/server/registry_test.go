package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOnce(t *testing.T) {
	reg := NewUserRegistry()

	require.NoError(t, reg.Register("alice", "pw1"))
	assert.ErrorIs(t, reg.Register("alice", "pw1"), ErrUserExists)
	// Same username with a different password still fails.
	assert.ErrorIs(t, reg.Register("alice", "other"), ErrUserExists)
}

func TestRegisterUsernameIsCaseSensitive(t *testing.T) {
	reg := NewUserRegistry()

	require.NoError(t, reg.Register("alice", "pw"))
	assert.NoError(t, reg.Register("Alice", "pw"))
}

func TestAuthenticateEmptyTable(t *testing.T) {
	reg := NewUserRegistry()

	_, err := reg.Authenticate("alice", "pw")
	assert.ErrorIs(t, err, ErrNoUsersRegistered)
}

func TestAuthenticate(t *testing.T) {
	reg := NewUserRegistry()
	require.NoError(t, reg.Register("alice", "pw1"))

	user, err := reg.Authenticate("alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = reg.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = reg.Authenticate("bob", "pw1")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestCompositeKeyNoSeparatorCollision(t *testing.T) {
	reg := NewUserRegistry()

	// Under the old concatenated-key scheme "a-b"+"c" and "a"+"b-c"
	// collided. The composite key must keep them distinct.
	require.NoError(t, reg.Register("a-b", "c"))
	require.NoError(t, reg.Register("a", "b-c"))

	_, err := reg.Authenticate("a-b", "c")
	assert.NoError(t, err)
	_, err = reg.Authenticate("a", "b-c")
	assert.NoError(t, err)
	_, err = reg.Authenticate("a", "b")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestOnlineSet(t *testing.T) {
	reg := NewUserRegistry()
	require.NoError(t, reg.Register("alice", "pw"))
	user, err := reg.Authenticate("alice", "pw")
	require.NoError(t, err)

	require.NoError(t, reg.MarkOnline(user))
	assert.True(t, reg.IsOnline("alice"))
	assert.Equal(t, 1, reg.OnlineCount())

	// Second login under the same username is rejected.
	assert.ErrorIs(t, reg.MarkOnline(user), ErrAlreadyOnline)
	assert.Equal(t, 1, reg.OnlineCount())

	reg.MarkOffline(user)
	assert.False(t, reg.IsOnline("alice"))
	assert.Equal(t, 0, reg.OnlineCount())

	// Marking offline twice is a no-op.
	reg.MarkOffline(user)
	assert.Equal(t, 0, reg.OnlineCount())
}

func TestOnlineUsernamesSorted(t *testing.T) {
	reg := NewUserRegistry()
	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, reg.Register(name, "pw"))
		user, err := reg.Authenticate(name, "pw")
		require.NoError(t, err)
		require.NoError(t, reg.MarkOnline(user))
	}

	assert.Equal(t, []string{"alice", "bob", "carol"}, reg.OnlineUsernames())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewUserRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user%d", i)
			require.NoError(t, reg.Register(name, "pw"))
			user, err := reg.Authenticate(name, "pw")
			require.NoError(t, err)
			require.NoError(t, reg.MarkOnline(user))
			reg.OnlineUsernames()
			reg.MarkOffline(user)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, reg.OnlineCount())
	assert.Len(t, reg.OnlineUsernames(), 0)
}
