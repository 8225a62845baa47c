package server

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"farmanet/internal/errors"
	"farmanet/protocol"
	"farmanet/util"
)

// Session is the live server-side representative of one connected
// client. It owns its connection exclusively: one goroutine runs the
// blocking read loop, and all writes (responses and pushed
// notifications) are funneled through a per-session write mutex so
// concurrent writers never interleave mid-line.
type Session struct {
	id   string
	conn net.Conn
	srv  *Server
	log  *util.Logger

	active  atomic.Bool
	cleanup sync.Once

	writeMu sync.Mutex

	userMu sync.Mutex
	userID string
}

func newSession(conn net.Conn, srv *Server) *Session {
	s := &Session{
		id:   uuid.NewString(),
		conn: conn,
		srv:  srv,
		log:  srv.log,
	}
	s.active.Store(true)
	return s
}

// ConnectionID returns the opaque identity of this connection, stable
// for its lifetime.
func (s *Session) ConnectionID() string { return s.id }

// RemoteHost returns the peer address without the port.
func (s *Session) RemoteHost() string {
	return util.HostOnly(s.conn.RemoteAddr().String())
}

// UserID returns the authenticated user id, or "" before login.
func (s *Session) UserID() string {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	return s.userID
}

// BindUser records the authenticated user id. The first bind wins;
// a session never changes identity after a successful login.
func (s *Session) BindUser(id string) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	if s.userID == "" {
		s.userID = id
	}
}

// Server returns the owning server, giving the request processor a way
// to route notifications.
func (s *Session) Server() *Server { return s.srv }

// Send delivers one envelope to this client, best-effort. A write
// failure is logged and isolated to this session so a broadcast loop
// delivering to many sessions is never aborted by one dead peer.
func (s *Session) Send(env protocol.Envelope) error {
	if !s.active.Load() {
		return errors.ErrSessionClosed
	}
	if err := s.writeLine(env.Encode()); err != nil {
		s.log.Verbose("session %s: notification write failed: %v", s.id, err)
		s.srv.metrics.NotificationDropped()
		return err
	}
	s.srv.metrics.NotificationSent()
	return nil
}

func (s *Session) writeLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(append([]byte(line), '\n'))
	return err
}

// run is the blocking read loop: one newline-terminated envelope at a
// time until end-of-stream, an I/O error, or server shutdown closes
// the connection underneath us.
func (s *Session) run() {
	defer s.teardown()

	sc := bufio.NewScanner(s.conn)
	sc.Buffer(make([]byte, 0, 4096), s.srv.cfg.LineLimit())

	for s.active.Load() && sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		env, err := protocol.Decode(line)
		if err != nil {
			// Malformed input gets an error response; the loop keeps
			// reading.
			s.log.Verbose("session %s: %v", s.id, err)
			_ = s.writeLine(protocol.ErrorResponse("mensaje mal formado").Encode())
			continue
		}

		s.srv.metrics.RequestProcessed()
		if out := s.srv.dispatch(env, s); out != "" {
			if err := s.writeLine(out); err != nil {
				s.log.Verbose("session %s: response write failed: %v", s.id, err)
				return
			}
		}
	}

	if err := sc.Err(); err != nil && s.active.Load() {
		s.log.Verbose("session %s: read error: %v", s.id, err)
	}
}

// teardown runs the termination path exactly once. Every step executes
// even if an earlier one fails: mark inactive, record the logout and
// tell the other sessions, release the connection, deregister.
func (s *Session) teardown() {
	s.cleanup.Do(func() {
		s.active.Store(false)

		if uid := s.UserID(); uid != "" {
			// Fire-and-forget: a failing tracker must not leak a
			// half-closed connection.
			if err := s.srv.registerLogout(uid); err != nil {
				s.log.Warn("session %s: logout for %s not recorded: %v", s.id, uid, err)
			}
			s.srv.BroadcastExcept(protocol.LogoutNotification(uid), s)
		}

		if err := s.conn.Close(); err != nil {
			s.log.Debug("session %s: close: %v", s.id, err)
		}

		s.srv.removeSession(s)
		s.log.Verbose("session %s closed (user %q)", s.id, s.UserID())
	})
}
