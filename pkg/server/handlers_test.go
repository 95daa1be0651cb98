package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn captures written lines for in-process handler tests.
type fakeConn struct {
	lines  []string
	closed bool
}

func (f *fakeConn) WriteLine(line string) error {
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) RemoteAddr() string { return "fake:0" }

func newHandlerFixture(t *testing.T) (*Server, *Session, *fakeConn) {
	t.Helper()
	srv := NewServer(DefaultConfig())
	conn := &fakeConn{}
	sess := srv.sessions.CreateSession(conn)
	return srv, sess, conn
}

func TestDispatchUnknownZeroArg(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "frobnicate"))
	assert.Equal(t, []string{"Usage : <Command> <Attribute/person> <Content>"}, conn.lines)
}

func TestDispatchUnknownTwoArg(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "frobnicate foo bar"))
	assert.Equal(t, []string{"Please use appropriate commands!"}, conn.lines)
}

func TestDispatchQuitReturnsSentinel(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	err := srv.dispatch(sess, "quit")
	assert.ErrorIs(t, err, errSessionClosed)
	assert.True(t, conn.closed)
	assert.Empty(t, conn.lines)
}

func TestLoginSetsSessionIdentity(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "register alice pw"))
	require.NoError(t, srv.dispatch(sess, "login alice pw"))

	assert.Equal(t, []string{"Success", "Success"}, conn.lines)
	require.NotNil(t, sess.User())
	assert.Equal(t, "alice", sess.User().Username)
	assert.True(t, srv.registry.IsOnline("alice"))
}

func TestReLoginSwitchesIdentity(t *testing.T) {
	srv, sess, _ := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "register alice pw"))
	require.NoError(t, srv.dispatch(sess, "register bob pw"))
	require.NoError(t, srv.dispatch(sess, "login alice pw"))
	require.NoError(t, srv.dispatch(sess, "login bob pw"))

	// The previous identity leaves the online set; only the new one stays.
	assert.False(t, srv.registry.IsOnline("alice"))
	assert.True(t, srv.registry.IsOnline("bob"))
	assert.Equal(t, "bob", sess.User().Username)
}

func TestFailedReLoginKeepsNothingOnline(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "register alice pw"))
	require.NoError(t, srv.dispatch(sess, "login alice pw"))
	require.NoError(t, srv.dispatch(sess, "login alice wrong"))

	// Bad credentials fail before the identity switch happens, so the
	// current identity survives.
	assert.Equal(t, "Failed", conn.lines[len(conn.lines)-1])
	assert.True(t, srv.registry.IsOnline("alice"))
	assert.Equal(t, "alice", sess.User().Username)
}

func TestLogoutOrderingAndState(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)
	peerConn := &fakeConn{}
	peer := srv.sessions.CreateSession(peerConn)

	require.NoError(t, srv.dispatch(sess, "register alice pw"))
	require.NoError(t, srv.dispatch(sess, "login alice pw"))
	require.NoError(t, srv.dispatch(peer, "register bob pw"))
	require.NoError(t, srv.dispatch(peer, "login bob pw"))

	conn.lines = nil
	peerConn.lines = nil
	require.NoError(t, srv.dispatch(sess, "logout"))

	assert.Equal(t, []string{"Logged out user : alice"}, conn.lines)
	assert.Equal(t, []string{"Offline alice"}, peerConn.lines)
	assert.Nil(t, sess.User())
	assert.False(t, srv.registry.IsOnline("alice"))
}

func TestMessageToOfflineRecipient(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "register alice pw"))
	require.NoError(t, srv.dispatch(sess, "login alice pw"))

	conn.lines = nil
	require.NoError(t, srv.dispatch(sess, "message bob hello"))
	assert.Equal(t, []string{"User is offline/Message is not sent"}, conn.lines)
}

func TestMessageDeliveredToFirstMatchingSession(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)
	peerConn := &fakeConn{}
	peer := srv.sessions.CreateSession(peerConn)

	require.NoError(t, srv.dispatch(sess, "register alice pw"))
	require.NoError(t, srv.dispatch(sess, "login alice pw"))
	require.NoError(t, srv.dispatch(peer, "register bob pw"))
	require.NoError(t, srv.dispatch(peer, "login bob pw"))

	conn.lines = nil
	peerConn.lines = nil
	require.NoError(t, srv.dispatch(sess, "message bob hello world"))

	assert.Equal(t, []string{"message alice : hello world"}, peerConn.lines)
	// Successful delivery sends nothing back to the sender.
	assert.Empty(t, conn.lines)
}

func TestListAlphabetical(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, srv.registry.Register(name, "pw"))
		user, err := srv.registry.Authenticate(name, "pw")
		require.NoError(t, err)
		require.NoError(t, srv.registry.MarkOnline(user))
	}

	require.NoError(t, srv.dispatch(sess, "list"))
	assert.Equal(t, []string{"alice", "bob", "carol", "Total 3 online."}, conn.lines)
}

func TestHelpLineCount(t *testing.T) {
	srv, sess, conn := newHandlerFixture(t)

	require.NoError(t, srv.dispatch(sess, "help"))
	assert.Len(t, conn.lines, 7)
}
