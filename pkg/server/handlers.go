package server

import (
	"errors"
	"strings"

	"github.com/talkline/talkline/pkg/protocol"
)

// errSessionClosed signals a graceful quit back to the read loop.
var errSessionClosed = errors.New("session closed by client")

// dispatch parses one input line and routes it to its handler. Unknown
// commands get a usage reply and the session keeps reading.
func (s *Server) dispatch(sess *Session, line string) error {
	cmd := protocol.ParseLine(line)

	if cmd.Args == nil {
		switch cmd.Name {
		case protocol.CmdQuit:
			s.recordCommand(cmd.Name)
			return s.handleQuit(sess)
		case protocol.CmdLogout:
			s.recordCommand(cmd.Name)
			return s.handleLogout(sess)
		case protocol.CmdHelp:
			s.recordCommand(cmd.Name)
			return s.handleHelp(sess)
		case protocol.CmdList:
			s.recordCommand(cmd.Name)
			return s.handleList(sess)
		default:
			s.recordCommand("unknown")
			return s.send(sess, protocol.ReplyUsageZeroArg)
		}
	}

	switch cmd.Name {
	case protocol.CmdLogin:
		s.recordCommand(cmd.Name)
		return s.handleLogin(sess, cmd.Args[0], cmd.Args[1])
	case protocol.CmdRegister:
		s.recordCommand(cmd.Name)
		return s.handleRegister(sess, cmd.Args[0], cmd.Args[1])
	case protocol.CmdMessage:
		s.recordCommand(cmd.Name)
		sent, err := s.handleMessage(sess, cmd.Args[0], cmd.Args[1])
		if err != nil {
			return err
		}
		if !sent {
			return s.send(sess, protocol.ReplyNotSent)
		}
		return nil
	default:
		s.recordCommand("unknown")
		return s.send(sess, protocol.ReplyUsageTwoArg)
	}
}

// handleLogin authenticates the pair and marks the identity online. A
// username already online from another session is rejected; a login on an
// already-authenticated session first drops the previous identity (identity
// switch, no Offline broadcast).
func (s *Server) handleLogin(sess *Session, username, password string) error {
	user, err := s.registry.Authenticate(username, password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLogin(false)
		}
		if errors.Is(err, ErrNoUsersRegistered) {
			if err := s.send(sess, protocol.ReplyNoUsers); err != nil {
				return err
			}
		}
		return s.send(sess, protocol.ReplyFailed)
	}

	if prev := sess.User(); prev != nil {
		sess.setUser(nil)
		s.registry.MarkOffline(prev)
	}

	if err := s.registry.MarkOnline(user); err != nil {
		debugLog.Printf("Session %d: login rejected, %s already online", sess.ID, user.Username)
		if s.metrics != nil {
			s.metrics.RecordLogin(false)
		}
		return s.send(sess, protocol.ReplyFailed)
	}

	sess.setUser(user)
	if s.metrics != nil {
		s.metrics.RecordLogin(true)
	}
	if err := s.send(sess, protocol.ReplySuccess); err != nil {
		return err
	}
	s.broadcast(protocol.FormatOnline(user.Username), sess)
	return nil
}

// handleRegister reserves the username and stores the credential pair.
func (s *Server) handleRegister(sess *Session, username, password string) error {
	if err := s.registry.Register(username, password); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRegistration(false)
		}
		return s.send(sess, protocol.ReplyUserExists)
	}
	if s.metrics != nil {
		s.metrics.RecordRegistration(true)
	}
	return s.send(sess, protocol.ReplySuccess)
}

// handleLogout clears the session identity and tells peers.
func (s *Server) handleLogout(sess *Session) error {
	user := sess.User()
	if user == nil {
		return s.send(sess, protocol.ReplyNotLoggedIn)
	}

	if err := s.send(sess, protocol.FormatLoggedOut(user.Username)); err != nil {
		return err
	}
	s.broadcast(protocol.FormatOffline(user.Username), sess)
	s.registry.MarkOffline(user)
	sess.setUser(nil)
	return nil
}

// handleList sends every online username, then the total.
func (s *Server) handleList(sess *Session) error {
	names := s.registry.OnlineUsernames()
	for _, name := range names {
		if err := s.send(sess, name); err != nil {
			return err
		}
	}
	return s.send(sess, protocol.FormatTotalOnline(len(names)))
}

// handleHelp sends the fixed command list.
func (s *Server) handleHelp(sess *Session) error {
	for _, line := range protocol.HelpLines() {
		if err := s.send(sess, line); err != nil {
			return err
		}
	}
	return nil
}

// handleMessage delivers text to the first live session (accept order)
// whose identity matches recipient case-insensitively and is online. The
// boolean reports delivery; the caller emits the not-sent reply.
func (s *Server) handleMessage(sess *Session, recipient, text string) (bool, error) {
	sender := sess.User()
	if sender == nil {
		if err := s.send(sess, protocol.ReplyNotLoggedIn); err != nil {
			return false, err
		}
		return false, nil
	}

	for _, peer := range s.sessions.GetAllSessions() {
		user := peer.User()
		if user == nil || !strings.EqualFold(user.Username, recipient) || !s.registry.IsOnline(user.Username) {
			continue
		}
		if err := peer.Conn.WriteLine(protocol.FormatDirect(sender.Username, text)); err != nil {
			errorLog.Printf("Session %d: direct message to session %d failed: %v", sess.ID, peer.ID, err)
			return false, nil
		}
		if s.metrics != nil {
			s.metrics.RecordLineSent()
			s.metrics.RecordDirectMessage()
		}
		return true, nil
	}
	return false, nil
}

// handleQuit closes the connection; the read loop ends on errSessionClosed.
func (s *Server) handleQuit(sess *Session) error {
	sess.Conn.Close()
	return errSessionClosed
}

// broadcast delivers message to every authenticated session except exclude,
// in accept order. A failed delivery is logged and skipped; it never aborts
// the remaining recipients.
func (s *Server) broadcast(message string, exclude *Session) {
	for _, peer := range s.sessions.GetAllSessions() {
		if peer == exclude || peer.User() == nil {
			continue
		}
		if err := peer.Conn.WriteLine(message); err != nil {
			errorLog.Printf("Broadcast to session %d failed: %v", peer.ID, err)
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordLineSent()
			s.metrics.RecordBroadcastDelivery()
		}
	}
}

// send writes one reply line to the session.
func (s *Server) send(sess *Session, line string) error {
	if err := sess.Conn.WriteLine(line); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordLineSent()
	}
	return nil
}

func (s *Server) recordCommand(name string) {
	if s.metrics != nil {
		s.metrics.RecordCommandReceived(name)
	}
}
