// Package client is the consuming side of the push channel: it owns one
// websocket connection to the hub, registers the user's identity and role,
// and dispatches incoming events to a caller-supplied handler. Reconnection
// is automatic and bounded; Close tears everything down deterministically.
package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"classwire/pkg/types"
)

// Handler receives dispatched events, one method per event variant. Adding an
// event type to the protocol grows this interface, so every consumer is
// forced to handle it.
type Handler interface {
	HandleNewSubmission(ev types.NewSubmission)
	HandleExamCreated(ev types.ExamCreated)
	HandleExamStatusChanged(ev types.ExamStatusChanged)
}

// User is the authenticated-user context the subscriber connects on behalf
// of. Upstream auth payloads carry the identifier under either "id" or
// "userId"; both are accepted and normalized.
type User struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (u User) identity() string {
	if u.ID != "" {
		return u.ID
	}
	return u.UserID
}

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = time.Second
)

// Options tune the subscriber. BaseURL is the REST API base; the push
// endpoint is derived from it by stripping the API path suffix.
type Options struct {
	BaseURL     string
	MaxAttempts int           // dial attempts per outage, default 5
	RetryDelay  time.Duration // fixed delay between attempts, default 1s
	Dialer      *websocket.Dialer
	Logger      *slog.Logger
}

// Subscriber maintains one registered connection to the hub.
type Subscriber struct {
	endpoint    string
	userID      string
	role        string
	handler     Handler
	dialer      *websocket.Dialer
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger

	state   atomic.Int32
	done    chan struct{}
	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
	closed  bool
}

// New validates the user context and prepares a subscriber. Students, and
// users with no identifier under either convention, are refused up front:
// they have no push channel, so no connection is ever initiated for them.
func New(user User, handler Handler, opts Options) (*Subscriber, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if user.identity() == "" {
		return nil, ErrMissingIdentity
	}
	if !types.IsEligibleRole(user.Role) {
		return nil, fmt.Errorf("%w: %q", ErrIneligibleRole, user.Role)
	}

	endpoint, err := Endpoint(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Subscriber{
		endpoint:    endpoint,
		userID:      user.identity(),
		role:        user.Role,
		handler:     handler,
		dialer:      opts.Dialer,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		log:         opts.Logger,
		done:        make(chan struct{}),
	}
	s.state.Store(int32(StateIdle))
	return s, nil
}

// Endpoint derives the push endpoint from the REST API base URL: same host,
// websocket scheme, the API path suffix replaced by /ws.
func Endpoint(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Start launches the connection loop. A subscriber runs at most once; a new
// mount gets a new subscriber.
func (s *Subscriber) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSubscriberClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.state.Store(int32(StateConnecting))
	go s.run()
	return nil
}

// State reports the current connection state.
func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// Close tears the subscriber down: the live connection is closed and any
// pending reconnection wait is cancelled immediately. No handler is invoked
// and no dial is attempted after Close returns. Idempotent.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.state.Store(int32(StateDisconnected))
	return nil
}

func (s *Subscriber) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscriber) run() {
	defer s.state.Store(int32(StateDisconnected))

	attempt := 0
	for {
		if s.isDone() {
			return
		}

		conn, _, err := s.dialer.Dial(s.endpoint, nil)
		if err != nil {
			attempt++
			s.log.Warn("connect failed",
				"endpoint", s.endpoint, "attempt", attempt, "error", err)
			if attempt >= s.maxAttempts {
				// Out of attempts: stay silent. A remount starts over.
				s.log.Error("connection attempts exhausted", "attempts", attempt)
				return
			}
			select {
			case <-time.After(s.retryDelay):
				continue
			case <-s.done:
				return
			}
		}
		attempt = 0

		if !s.track(conn) {
			// Closed while dialing.
			_ = conn.Close()
			return
		}
		s.state.Store(int32(StateConnected))

		// Server-side state never survives a reconnect, so registration and
		// the room join are replayed on every session.
		if err := s.register(conn); err != nil {
			s.log.Warn("registration failed", "error", err)
		} else {
			s.state.Store(int32(StateRegistered))
			s.log.Info("registered", "user_id", s.userID, "role", s.role)
		}

		s.readLoop(conn)
		_ = conn.Close()
		s.track(nil)

		if s.isDone() {
			return
		}
		s.state.Store(int32(StateReconnecting))
		s.log.Warn("connection lost, reconnecting")
	}
}

// track records the live connection so Close can interrupt a blocked read.
// Returns false if the subscriber was closed in the meantime.
func (s *Subscriber) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *Subscriber) register(conn *websocket.Conn) error {
	reg, err := types.RegisterMessage(types.Registration{UserID: s.userID, Role: s.role})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(reg); err != nil {
		return fmt.Errorf("sending registration: %w", err)
	}

	if s.role == types.RoleInstructor {
		join, err := types.JoinInstructorRoomMessage(s.userID)
		if err != nil {
			return err
		}
		if err := conn.WriteJSON(join); err != nil {
			return fmt.Errorf("joining instructor room: %w", err)
		}
	}
	return nil
}

// readLoop dispatches incoming events until the connection fails. Handlers
// run synchronously on this goroutine, so per-connection delivery order is
// the handler invocation order.
func (s *Subscriber) readLoop(conn *websocket.Conn) {
	for {
		var env types.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !s.isDone() {
				s.log.Warn("read failed", "error", err)
			}
			return
		}

		ev, err := types.DecodeEvent(env)
		if err != nil {
			s.log.Warn("discarding event", "type", env.Type, "error", err)
			continue
		}
		s.dispatch(ev)
	}
}

func (s *Subscriber) dispatch(ev types.Event) {
	switch ev := ev.(type) {
	case types.NewSubmission:
		s.handler.HandleNewSubmission(ev)
	case types.ExamCreated:
		s.handler.HandleExamCreated(ev)
	case types.ExamStatusChanged:
		s.handler.HandleExamStatusChanged(ev)
	}
}
