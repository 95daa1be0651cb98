package server

import (
	"net"
	"sync"
)

// SafeConn wraps a net.Conn with automatic write synchronization so a
// broadcast racing a handler reply cannot interleave bytes inside a line.
//
// Reads are not synchronized here; only the session's own read loop reads
// from the connection.
type SafeConn struct {
	conn net.Conn
	mu   sync.Mutex // protects writes to conn
}

// NewSafeConn wraps a net.Conn with write synchronization.
func NewSafeConn(conn net.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// WriteLine sends one reply line, appending the line terminator. This is the
// only way to write to the connection - the raw conn is private.
func (sc *SafeConn) WriteLine(line string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, err := sc.conn.Write([]byte(line + "\n"))
	return err
}

// Close closes the underlying connection.
func (sc *SafeConn) Close() error {
	return sc.conn.Close()
}

// RemoteAddr returns the remote network address.
func (sc *SafeConn) RemoteAddr() string {
	return sc.conn.RemoteAddr().String()
}
