// Package server implements the concurrent connection core: one TCP
// listener multiplexing many long-lived client sessions, a shared
// registry of who is connected, and synchronous request/response plus
// asynchronous push notification delivery.
//
// Scheduling model: one goroutine per connection, blocking on read.
// The registry is the only state shared across connections; broadcast
// fan-out iterates a snapshot taken under the registry lock, so
// unrelated connect/disconnect churn never serializes behind delivery.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"farmanet/config"
	"farmanet/internal/metrics"
	"farmanet/protocol"
	"farmanet/util"
)

// SessionContext is what the request processor sees of one connection:
// its identity, its (optional) authenticated user, and a route back to
// the server for notification delivery.
type SessionContext interface {
	ConnectionID() string
	RemoteHost() string
	UserID() string
	BindUser(id string)
	Send(env protocol.Envelope) error
	Server() *Server
}

// Processor maps one decoded request envelope to encoded response
// text. Empty output means nothing is written back. A processor should
// not panic; the server converts a panic into an error response as a
// last line of defense.
type Processor interface {
	Process(env protocol.Envelope, sess SessionContext) string
}

// SessionTracker records logouts in durable storage when a session
// terminates. Failures are logged, never propagated.
type SessionTracker interface {
	RegisterLogout(ctx context.Context, userID string) error
}

// Server owns the accept loop, the registry, and shutdown.
type Server struct {
	cfg       *config.Config
	log       *util.Logger
	processor Processor
	tracker   SessionTracker
	metrics   *metrics.Collector

	registry *Registry

	mu      sync.Mutex
	ln      net.Listener
	running bool
	wg      sync.WaitGroup
}

// New returns a ready-to-start server.
func New(cfg *config.Config, proc Processor, tracker SessionTracker, logger *util.Logger, mc *metrics.Collector) *Server {
	return &Server{
		cfg:       cfg,
		log:       logger,
		processor: proc,
		tracker:   tracker,
		metrics:   mc,
		registry:  NewRegistry(),
	}
}

// Start binds the listener and accepts connections until the context
// is cancelled or Stop is called. A bind failure is fatal and returned;
// an error on an individual accept while running is logged and the
// loop continues. Start returns only after shutdown has completed and
// every session has finished its termination path.
func (s *Server) Start(ctx context.Context) error {
	addr := util.FormatAddr(s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.running = true
	s.mu.Unlock()

	s.log.Info("listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.isRunning() {
				break
			}
			s.log.Warn("accept: %v", err)
			continue
		}

		// Registration is gated on the running flag under the server
		// lock: a connection accepted while Stop is in flight would
		// otherwise miss Stop's registry snapshot and block shutdown
		// on its read loop forever. The same critical section orders
		// wg.Add before Stop's wg.Wait.
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		sess := newSession(conn, s)
		// Registered before its read loop starts, removed only by its
		// own termination path.
		s.registry.Add(sess)
		s.wg.Add(1)
		s.mu.Unlock()

		s.metrics.SessionOpened()
		s.log.Verbose("connection from %s (session %s, %d connected)",
			conn.RemoteAddr(), sess.ConnectionID(), s.registry.Len())

		go func() {
			defer s.wg.Done()
			sess.run()
		}()
	}

	s.wg.Wait()
	return nil
}

// Stop shuts the server down: it stops accepting, then closes every
// connected session's socket, which unblocks each read loop and lets
// the session run its normal termination path. Idempotent. When Stop
// returns the registry is empty.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.ln
	s.mu.Unlock()

	s.log.Info("shutting down (%d connected)", s.registry.Len())
	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range s.registry.Snapshot() {
		_ = sess.conn.Close()
	}
	s.wg.Wait()
	s.log.Debug("final metrics: %s", s.metrics.JSON())
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ── Notification routing ─────────────────────────────────────────────

// BroadcastAll delivers the envelope to every connected session.
// Delivery is fire-and-forget: a failed write is isolated to its
// recipient.
func (s *Server) BroadcastAll(env protocol.Envelope) {
	for _, sess := range s.registry.Snapshot() {
		_ = sess.Send(env)
	}
}

// BroadcastExcept delivers the envelope to every session except the
// given one — typically the session whose activity caused the event.
func (s *Server) BroadcastExcept(env protocol.Envelope, except SessionContext) {
	exceptID := ""
	if except != nil {
		exceptID = except.ConnectionID()
	}
	for _, sess := range s.registry.Snapshot() {
		if sess.ConnectionID() == exceptID {
			continue
		}
		_ = sess.Send(env)
	}
}

// SendToUser delivers the envelope to the first session bound to
// userID and reports whether one was connected. With duplicate logins
// the recipient session is unspecified.
func (s *Server) SendToUser(userID string, env protocol.Envelope) bool {
	sess := s.registry.FindByUser(userID)
	if sess == nil {
		return false
	}
	return sess.Send(env) == nil
}

// ── Session plumbing ─────────────────────────────────────────────────

// dispatch hands one request to the processor, converting a panic into
// an error response so the read loop survives anything the business
// layer throws.
func (s *Server) dispatch(env protocol.Envelope, sess *Session) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("processor panic on session %s: %v", sess.ConnectionID(), r)
			s.metrics.RecordError(fmt.Sprint(r))
			out = protocol.ErrorResponse(fmt.Sprintf("error interno: %v", r)).Encode()
		}
	}()
	return s.processor.Process(env, sess)
}

// removeSession deregisters a terminating session. Safe to call when
// the session is already absent.
func (s *Server) removeSession(sess *Session) {
	s.registry.Remove(sess.ConnectionID())
	s.metrics.SessionClosed()
	s.log.Verbose("session %s removed, %d connected", sess.ConnectionID(), s.registry.Len())
}

// registerLogout records a logout through the tracker, if one is wired.
func (s *Server) registerLogout(userID string) error {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.RegisterLogout(context.Background(), userID)
}
