// Package session exposes the executor to clients over websocket connections.
// Every connection is one session: it is created on accept, logs on with an
// "A" message, and logs out with a "5" message or by disconnecting. Orders and
// cancel requests sent before logon are answered with a session reject.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/coachpo/executor/errs"
	"github.com/coachpo/executor/internal/domain/schema"
	"github.com/coachpo/executor/internal/executor"
	"github.com/coachpo/executor/internal/observability"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultPingTimeout  = 10 * time.Second
	defaultCopyTimeout  = 250 * time.Millisecond
)

// Handler receives session lifecycle callbacks and inbound events.
type Handler interface {
	OnCreate(sessionID string)
	OnLogon(sessionID string)
	OnLogout(sessionID string)
	Handle(ctx context.Context, sessionID string, evt schema.InboundEvent, sink executor.ReportSink) error
}

// Options tunes per-session behaviour.
type Options struct {
	// MessageRate caps inbound messages per second; zero disables throttling.
	MessageRate  float64
	MessageBurst int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// Copies receive every validated outgoing message after the session itself.
	Copies []executor.ReportSink
	// CopyTimeout bounds each copy send; zero means defaultCopyTimeout.
	CopyTimeout time.Duration
	Logger      observability.Logger
}

// Server accepts websocket sessions and feeds their messages to a Handler.
type Server struct {
	handler Handler
	opts    Options
	logger  observability.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	sessions map[string]*session
	active   sync.WaitGroup
}

// NewServer builds a session server around handler.
func NewServer(handler Handler, opts Options) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = 1
	}
	if opts.CopyTimeout <= 0 {
		opts.CopyTimeout = defaultCopyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Log()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler:  handler,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		mu:       sync.Mutex{},
		closed:   false,
		sessions: make(map[string]*session),
		active:   sync.WaitGroup{},
	}
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close disconnects every session and waits for their handlers to return.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.active.Wait()
}

func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.active.Add(1)
	return true
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.track() {
		http.Error(w, "server closing", http.StatusServiceUnavailable)
		return
	}
	defer s.active.Done()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("session accept failed", observability.F("remote", r.RemoteAddr), observability.F("err", err))
		return
	}

	sess := s.newSession(conn)
	s.register(sess)
	defer s.unregister(sess)

	s.handler.OnCreate(sess.id)
	sess.run(s.ctx)
	if sess.loggedOn {
		s.handler.OnLogout(sess.id)
	}
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) unregister(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

type session struct {
	id       string
	server   *Server
	conn     *websocket.Conn
	limiter  *rate.Limiter
	sink     executor.ReportSink
	loggedOn bool
}

func (s *Server) newSession(conn *websocket.Conn) *session {
	sess := &session{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
	}
	if s.opts.MessageRate > 0 {
		sess.limiter = rate.NewLimiter(rate.Limit(s.opts.MessageRate), s.opts.MessageBurst)
	}
	var out executor.ReportSink = executor.SinkFunc(sess.send)
	if len(s.opts.Copies) > 0 {
		out = executor.NewTeeSink(out, sess.copyFailed, s.opts.Copies...).WithCopyTimeout(s.opts.CopyTimeout)
	}
	sess.sink = executor.NewValidatingSink(out)
	return sess
}

// run drives the read and ping loops; the first to stop ends the session.
func (sess *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var wg conc.WaitGroup
	var loopErr error
	var once sync.Once
	stop := func(err error) {
		once.Do(func() { loopErr = err })
		cancel()
	}
	wg.Go(func() { stop(sess.readLoop(ctx)) })
	wg.Go(func() { stop(sess.pingLoop(ctx)) })
	wg.Wait()

	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		sess.server.logger.Error("session ended", observability.F("session", sess.id), observability.F("err", loopErr))
		_ = sess.conn.Close(websocket.StatusInternalError, "session error")
		return
	}
	_ = sess.conn.Close(websocket.StatusNormalClosure, "")
}

func (sess *session) readLoop(ctx context.Context) error {
	for {
		msgType, data, err := sess.conn.Read(ctx)
		if err != nil {
			return classifyConnErr("read", err)
		}
		if msgType != websocket.MessageText {
			continue
		}
		if sess.limiter != nil {
			if err := sess.limiter.Wait(ctx); err != nil {
				return context.Canceled
			}
		}
		if done := sess.dispatch(ctx, data); done {
			return context.Canceled
		}
	}
}

// dispatch handles one frame and reports whether the session should end.
func (sess *session) dispatch(ctx context.Context, data []byte) bool {
	logger := sess.server.logger
	evt, err := DecodeInbound(data)
	if err != nil {
		logger.Error("inbound message rejected", observability.F("session", sess.id), observability.F("err", err))
		sess.reject("", err.Error())
		return false
	}

	switch evt.MsgType {
	case MsgTypeLogon:
		if !sess.loggedOn {
			sess.loggedOn = true
			sess.server.handler.OnLogon(sess.id)
		}
		sess.writeSession(MsgTypeLogon, "", "")
		return false
	case MsgTypeLogout:
		if sess.loggedOn {
			sess.loggedOn = false
			sess.server.handler.OnLogout(sess.id)
		}
		sess.writeSession(MsgTypeLogout, "", "")
		return true
	}

	if !sess.loggedOn && evt.Kind != schema.InboundOther {
		logger.Info("application message before logon",
			observability.F("session", sess.id),
			observability.F("msg_type", string(evt.MsgType)))
		sess.reject(string(evt.MsgType), "logon required")
		return false
	}

	if err := sess.server.handler.Handle(ctx, sess.id, evt, sess.sink); err != nil {
		logger.Debug("inbound event failed",
			observability.F("session", sess.id),
			observability.F("msg_type", string(evt.MsgType)),
			observability.F("err", err))
	}
	return false
}

func (sess *session) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(sess.server.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
			err := sess.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return classifyConnErr("ping", err)
			}
		}
	}
}

func (sess *session) send(ctx context.Context, msg schema.Outbound) error {
	data, err := EncodeOutbound(msg)
	if err != nil {
		return err
	}
	return sess.write(ctx, data)
}

func (sess *session) write(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, sess.server.opts.WriteTimeout)
	defer cancel()
	if err := sess.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return errs.New("session", errs.CodeNetwork,
			errs.WithMessage("write failed"),
			errs.WithField("session", sess.id),
			errs.WithCause(err))
	}
	return nil
}

func (sess *session) writeSession(msgType schema.MsgType, refMsgType, text string) {
	data, err := encodeSessionMessage(msgType, refMsgType, text)
	if err == nil {
		err = sess.write(sess.server.ctx, data)
	}
	if err != nil {
		sess.server.logger.Error("session message dropped",
			observability.F("session", sess.id),
			observability.F("msg_type", string(msgType)),
			observability.F("err", err))
	}
}

func (sess *session) reject(refMsgType, text string) {
	sess.writeSession(MsgTypeReject, refMsgType, text)
}

func (sess *session) copyFailed(msg schema.Outbound, err error) {
	sess.server.logger.Error("report copy failed",
		observability.F("session", sess.id),
		observability.F("msg_type", string(msg.MsgType())),
		observability.F("err", err))
}

func classifyConnErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return context.Canceled
	}
	if errors.Is(err, net.ErrClosed) {
		return context.Canceled
	}
	if status := websocket.CloseStatus(err); status != -1 {
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			return context.Canceled
		}
		return fmt.Errorf("%s: remote closed with status %d", op, status)
	}
	return fmt.Errorf("%s: %w", op, err)
}
