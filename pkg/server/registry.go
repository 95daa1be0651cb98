package server

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("username already registered")

	// ErrNoUsersRegistered is returned by Authenticate while the credential
	// table is empty. It maps to a distinct diagnostic on the wire.
	ErrNoUsersRegistered = errors.New("no users registered")

	// ErrBadCredentials is returned when no identity matches the pair.
	ErrBadCredentials = errors.New("unknown username/password pair")

	// ErrAlreadyOnline is returned when the username is logged in elsewhere.
	ErrAlreadyOnline = errors.New("user already online")
)

// User is a registered identity. Immutable once created.
type User struct {
	Username string
	Password string
}

// credentials is the composite lookup key for the credential table. Using a
// comparable struct instead of a delimited string means usernames and
// passwords containing any separator character cannot collide.
type credentials struct {
	username string
	password string
}

// UserRegistry holds registered credentials and the set of online usernames.
// All maps grow monotonically except online, which shrinks on logout and
// session teardown. Safe for concurrent use.
type UserRegistry struct {
	mu        sync.RWMutex
	users     map[credentials]*User
	usernames map[string]struct{}
	online    map[string]*User
}

// NewUserRegistry creates an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users:     make(map[credentials]*User),
		usernames: make(map[string]struct{}),
		online:    make(map[string]*User),
	}
}

// Register reserves username and stores the credential pair. The username
// check is case-sensitive and independent of the password: a second
// registration under the same username fails no matter the password.
func (r *UserRegistry) Register(username, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernames[username]; taken {
		return ErrUserExists
	}
	r.usernames[username] = struct{}{}
	r.users[credentials{username, password}] = &User{Username: username, Password: password}
	return nil
}

// Authenticate looks up the exact credential pair. An empty credential table
// is reported distinctly so the caller can surface the dedicated diagnostic.
func (r *UserRegistry) Authenticate(username, password string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.users) == 0 {
		return nil, ErrNoUsersRegistered
	}
	user, ok := r.users[credentials{username, password}]
	if !ok {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// MarkOnline adds the user to the online set. Membership is keyed by
// username, so a concurrent login under the same credentials from another
// session is rejected rather than silently shared.
func (r *UserRegistry) MarkOnline(user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, online := r.online[user.Username]; online {
		return ErrAlreadyOnline
	}
	r.online[user.Username] = user
	return nil
}

// MarkOffline removes the user from the online set. Removing an offline
// user is a no-op.
func (r *UserRegistry) MarkOffline(user *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.online, user.Username)
}

// IsOnline reports whether the exact username is in the online set.
func (r *UserRegistry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, online := r.online[username]
	return online
}

// OnlineUsernames returns the online usernames sorted for stable output.
func (r *UserRegistry) OnlineUsernames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.online))
	for name := range r.online {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// OnlineCount returns the number of online users.
func (r *UserRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.online)
}
