package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The line protocol carries no browser credentials; any origin may connect.
		return true
	},
}

// wsConn adapts a WebSocket connection to the lineConn seam: every reply
// line becomes one text message. Writes are serialized the same way
// SafeConn serializes TCP writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (wc *wsConn) WriteLine(line string) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (wc *wsConn) Close() error {
	return wc.conn.Close()
}

func (wc *wsConn) RemoteAddr() string {
	return wc.conn.RemoteAddr().String()
}

// HandleWebSocket upgrades an HTTP request and serves the line protocol
// over it, one command per text message. WebSocket sessions share the
// registries and broadcast set with TCP sessions.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		errorLog.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sess := s.sessions.CreateSession(&wsConn{conn: conn})
	s.connectionsSinceReport.Add(1)
	debugLog.Printf("New WebSocket connection from %s (session %d)", sess.RemoteAddr, sess.ID)

	go s.wsReadLoop(sess, conn)
}

// wsReadLoop mirrors the TCP read loop for a WebSocket session.
func (s *Server) wsReadLoop(sess *Session, conn *websocket.Conn) {
	defer s.removeSession(sess)

	conn.SetReadLimit(int64(s.config.MaxLineLength))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				debugLog.Printf("Session %d: WebSocket read error: %v", sess.ID, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := s.dispatch(sess, string(data)); err != nil {
			if !errors.Is(err, errSessionClosed) {
				errorLog.Printf("Session %d: %v", sess.ID, err)
			}
			return
		}
	}
}
