// Package server implements the TalkLine chat server: a TCP acceptor, one
// goroutine per connection, shared user/session registries, and presence
// broadcasts to authenticated peers.
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talkline/talkline/pkg/protocol"
)

var (
	errorLog *log.Logger
	debugLog *log.Logger
)

// Server is the TalkLine chat server.
type Server struct {
	listener net.Listener
	registry *UserRegistry
	sessions *SessionManager
	config   ServerConfig
	shutdown chan struct{}
	wg       sync.WaitGroup

	promRegistry *prometheus.Registry
	metrics      *Metrics
	startTime    time.Time

	// Connection deltas for periodic reporting
	connectionsSinceReport    atomic.Int64
	disconnectionsSinceReport atomic.Int64
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	TCPPort       int
	HTTPPort      int // Public HTTP port for /ws (0 = disabled)
	MetricsPort   int // Internal metrics port for /metrics and /health (0 = disabled)
	MaxLineLength int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		TCPPort:       6477,
		HTTPPort:      8080,
		MetricsPort:   9090,
		MaxLineLength: 4096,
	}
}

// NewServer creates a new server instance.
func NewServer(config ServerConfig) *Server {
	initLoggers()

	promRegistry := prometheus.NewRegistry()
	metrics := NewMetrics(promRegistry)

	sessions := NewSessionManager()
	sessions.SetMetrics(metrics)

	return &Server{
		registry:     NewUserRegistry(),
		sessions:     sessions,
		config:       config,
		shutdown:     make(chan struct{}),
		promRegistry: promRegistry,
		metrics:      metrics,
		startTime:    time.Now(),
	}
}

// initLoggers sets up error and debug loggers. Error output goes to stderr;
// debug logging is discarded until EnableDebugLogging is called.
func initLoggers() {
	if errorLog == nil {
		errorLog = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
	}
	if debugLog == nil {
		debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)
	}
}

// EnableDebugLogging turns on debug logging to stderr.
func (s *Server) EnableDebugLogging() {
	debugLog = log.New(os.Stderr, "DEBUG: ", log.LstdFlags)
	debugLog.Println("Debug logging enabled")
}

// Start binds the TCP listener and starts the background loops. A bind
// failure is fatal: the server reports it and does not start.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.TCPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	log.Printf("Listening on %s", listener.Addr())

	// Internal metrics server - never expose publicly.
	if s.config.MetricsPort > 0 {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
			metricsMux.HandleFunc("/health", s.HealthHandler)
			metricsAddr := fmt.Sprintf(":%d", s.config.MetricsPort)
			log.Printf("Metrics server listening on %s (/metrics, /health) - INTERNAL ONLY", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Public HTTP server carrying the line protocol over WebSocket.
	if s.config.HTTPPort > 0 {
		go func() {
			publicMux := http.NewServeMux()
			publicMux.HandleFunc("/ws", s.HandleWebSocket)
			publicAddr := fmt.Sprintf(":%d", s.config.HTTPPort)
			log.Printf("Public HTTP server listening on %s (/ws)", publicAddr)
			if err := http.ListenAndServe(publicAddr, publicMux); err != nil {
				log.Printf("Public HTTP server error: %v", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.statsLoggingLoop()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the bound listener address. Useful when TCPPort is 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	log.Println("Graceful shutdown initiated...")

	close(s.shutdown)

	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
		log.Println("TCP listener closed")
	}

	// Best-effort notice; clients with broken pipes are simply skipped.
	for _, sess := range s.sessions.GetAllSessions() {
		_ = sess.Conn.WriteLine("Server shutting down.")
	}

	log.Println("Closing all client sessions...")
	s.sessions.CloseAll()

	log.Println("Waiting for background goroutines to finish...")
	s.wg.Wait()

	log.Println("Graceful shutdown complete")
	return nil
}

// acceptLoop accepts incoming connections. Transient accept errors are
// logged and the loop continues; a closed listener during shutdown exits
// cleanly.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		go s.handleConnection(conn)
	}
}

// handleConnection sets up the session for an accepted connection and runs
// its read loop.
func (s *Server) handleConnection(conn net.Conn) {
	// Disable Nagle's algorithm for immediate sends
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	sess := s.sessions.CreateSession(NewSafeConn(conn))
	s.connectionsSinceReport.Add(1)
	debugLog.Printf("New connection from %s (session %d)", sess.RemoteAddr, sess.ID)

	s.readLoop(sess, conn)
}

// readLoop reads newline-terminated commands until EOF, a read error, an
// oversized line, or quit. Per-connection failures terminate only this
// session; they never reach the acceptor or other sessions.
func (s *Server) readLoop(sess *Session, conn net.Conn) {
	defer s.removeSession(sess)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), s.config.MaxLineLength)

	for scanner.Scan() {
		if err := s.dispatch(sess, scanner.Text()); err != nil {
			if errors.Is(err, errSessionClosed) {
				debugLog.Printf("Session %d: closed by quit", sess.ID)
			} else {
				errorLog.Printf("Session %d: %v", sess.ID, err)
			}
			return
		}
	}

	if err := scanner.Err(); err != nil {
		debugLog.Printf("Session %d: read loop ended: %v", sess.ID, err)
	} else {
		debugLog.Printf("Session %d: client disconnected", sess.ID)
	}
}

// removeSession removes the session from the live-session table and, if the
// session was still authenticated, takes the user offline and tells peers.
// Safe to call twice; the second call is a no-op.
func (s *Server) removeSession(sess *Session) {
	if _, ok := s.sessions.GetSession(sess.ID); !ok {
		return
	}
	s.sessions.RemoveSession(sess.ID)
	s.disconnectionsSinceReport.Add(1)

	if user := sess.User(); user != nil {
		sess.setUser(nil)
		s.registry.MarkOffline(user)
		s.broadcast(protocol.FormatOffline(user.Username), sess)
	}
}

// HealthHandler reports basic liveness for the internal HTTP server.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"sessions":       s.sessions.Count(),
		"online_users":   s.registry.OnlineCount(),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

// statsLoggingLoop periodically logs key counters.
func (s *Server) statsLoggingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			connected := s.connectionsSinceReport.Swap(0)
			disconnected := s.disconnectionsSinceReport.Swap(0)
			log.Printf("[STATS] Active sessions: %d, online users: %d, connected since last: %d, disconnected since last: %d, goroutines: %d",
				s.sessions.Count(), s.registry.OnlineCount(), connected, disconnected, runtime.NumGoroutine())
		}
	}
}
