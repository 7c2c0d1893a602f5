// Package channel implements the quest session channel: one WebSocket per
// questionnaire attempt carrying {event, data} JSON frames in both directions.
//
// A Channel moves through Closed -> Connecting -> Open -> Closed. Inbound
// frames are dispatched by a single reader goroutine, in delivery order, to
// the handlers registered with On.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 1 << 20
)

// State is the connection state of a Channel.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Handler receives the raw data of a matching inbound frame.
type Handler func(data json.RawMessage)

// Channel owns at most one quest WebSocket at a time.
type Channel struct {
	baseURL        string
	dialer         *websocket.Dialer
	logger         *zap.Logger
	connectTimeout time.Duration
	tokenInQuery   bool

	mu      sync.Mutex
	state   State
	conn    *conn
	attempt uint64

	hmu      sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
}

type entry struct {
	id uint64
	fn Handler
}

type conn struct {
	ws          *websocket.Conn
	sessionID   string
	writeMu     sync.Mutex
	done     chan struct{}
	readerID atomic.Uint64
	closing  atomic.Bool
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the channel logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithConnectTimeout bounds the handshake. Zero leaves only the caller's
// context as the deadline.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Channel) { c.connectTimeout = d }
}

// WithTokenInQuery controls whether the bearer token is placed in the URL
// query in addition to the Authorization header.
func WithTokenInQuery(v bool) Option {
	return func(c *Channel) { c.tokenInQuery = v }
}

// New creates a closed Channel for the quest endpoint at baseURL.
func New(baseURL string, opts ...Option) *Channel {
	c := &Channel{
		baseURL: baseURL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
		logger:         zap.NewNop(),
		connectTimeout: 10 * time.Second,
		tokenInQuery:   true,
		handlers:       make(map[string][]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("channel")
	return c
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the quest endpoint for sessionID and returns once the
// connection is open. It fails with ErrAlreadyConnected unless the channel is
// Closed, and on any handshake failure leaves the channel Closed.
func (c *Channel) Connect(ctx context.Context, sessionID, token string) error {
	c.mu.Lock()
	if c.state != StateClosed {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyConnected, st)
	}
	c.state = StateConnecting
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	target, err := c.endpoint(sessionID, token)
	if err != nil {
		c.abandon(attempt)
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With(zap.String("session_id", sessionID), zap.String("url", redact(target)))
	log.Debug("dialing")

	ws, resp, err := c.dialer.DialContext(ctx, target.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.abandon(attempt)
		if timedOut(ctx, err) {
			log.Error("handshake timed out", zap.Duration("timeout", c.connectTimeout))
			return fmt.Errorf("%w after %s", ErrConnectTimeout, c.connectTimeout)
		}
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		log.Error("handshake failed", zap.Int("status", status), zap.Error(err))
		if status != 0 {
			return fmt.Errorf("%w: status %d: %v", ErrHandshake, status, err)
		}
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	cn := &conn{ws: ws, sessionID: sessionID, done: make(chan struct{})}

	c.mu.Lock()
	if c.attempt != attempt || c.state != StateConnecting {
		c.mu.Unlock()
		ws.Close()
		log.Warn("disconnected during handshake")
		return fmt.Errorf("%w: disconnected during handshake", ErrHandshake)
	}
	c.conn = cn
	c.state = StateOpen
	c.mu.Unlock()

	ws.SetReadLimit(maxFrameSize)
	go c.readLoop(cn)

	log.Info("connected")
	return nil
}

// timedOut reports whether a failed dial ran out of time. The dialer arms the
// socket deadline from ctx, so the read can fail with an i/o timeout before
// ctx itself reports expiry.
func timedOut(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Channel) abandon(attempt uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == attempt && c.state == StateConnecting {
		c.state = StateClosed
	}
}

func (c *Channel) endpoint(sessionID, token string) (*url.URL, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing quest url: %w", err)
	}
	q := u.Query()
	q.Set("sessionId", sessionID)
	if c.tokenInQuery && token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// redact renders u with any token query value masked.
func redact(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}

// On registers h for event. Handlers for the same event run in registration
// order; the returned Subscription removes h.
func (c *Channel) On(event string, h Handler) *Subscription {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], entry{id: id, fn: h})
	return &Subscription{c: c, event: event, id: id}
}

// Typed registers fn for event, decoding each frame's data into T. Frames
// whose data does not decode are logged and skipped.
func Typed[T any](c *Channel, event string, fn func(T)) *Subscription {
	return c.On(event, func(data json.RawMessage) {
		var v T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v); err != nil {
				c.logger.Warn("dropping undecodable payload", zap.String("event", event), zap.Error(err))
				return
			}
		}
		fn(v)
	})
}

func (c *Channel) remove(event string, id uint64) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	cur := c.handlers[event]
	next := make([]entry, 0, len(cur))
	for _, e := range cur {
		if e.id != id {
			next = append(next, e)
		}
	}
	if len(next) == 0 {
		delete(c.handlers, event)
		return
	}
	c.handlers[event] = next
}

func (c *Channel) handlersFor(event string) []entry {
	c.hmu.RLock()
	defer c.hmu.RUnlock()
	return c.handlers[event]
}

// Send encodes {event, data: payload} and writes it. When the channel is not
// open it logs and returns ErrNotOpen without queuing.
func (c *Channel) Send(event string, payload any) error {
	c.mu.Lock()
	cn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || cn == nil {
		c.logger.Error("send on closed channel", zap.String("event", event))
		return ErrNotOpen
	}

	msg, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}

	cn.writeMu.Lock()
	defer cn.writeMu.Unlock()
	_ = cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cn.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		c.logger.Error("write failed", zap.String("event", event), zap.Error(err))
		return fmt.Errorf("sending %s: %w", event, err)
	}
	c.logger.Debug("sent", zap.String("event", event), zap.String("session_id", cn.sessionID))
	return nil
}

// Disconnect closes the connection, if any, and returns the channel to
// Closed. It is safe to call repeatedly and from inside a handler.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cn := c.conn
	c.conn = nil
	c.attempt++
	c.state = StateClosed
	c.mu.Unlock()

	if cn == nil {
		return
	}
	cn.closing.Store(true)
	_ = cn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	_ = cn.ws.Close()

	// A handler calling Disconnect runs on the reader goroutine itself and
	// must not wait for its own exit.
	if cn.readerID.Load() != goroutineID() {
		<-cn.done
	}
	c.logger.Info("disconnected", zap.String("session_id", cn.sessionID))
}

func (c *Channel) current(cn *conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == cn
}

func (c *Channel) readLoop(cn *conn) {
	cn.readerID.Store(goroutineID())
	defer close(cn.done)
	for {
		_, raw, err := cn.ws.ReadMessage()
		if err != nil {
			if !cn.closing.Load() {
				c.logger.Warn("connection lost", zap.String("session_id", cn.sessionID), zap.Error(err))
			}
			c.mu.Lock()
			if c.conn == cn {
				c.conn = nil
				c.state = StateClosed
			}
			c.mu.Unlock()
			_ = cn.ws.Close()
			return
		}
		c.dispatch(cn, raw)
	}
}

func (c *Channel) dispatch(cn *conn, raw []byte) {
	f, err := decodeFrame(raw)
	if err != nil {
		c.logger.Warn("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(raw)))
		return
	}
	if !c.current(cn) {
		c.logger.Debug("dropping frame for stale connection", zap.String("event", f.Event))
		return
	}

	handlers := c.handlersFor(f.Event)
	if len(handlers) == 0 {
		c.logger.Debug("no handler for event", zap.String("event", f.Event))
		return
	}

	for _, h := range handlers {
		c.invoke(f.Event, h.fn, f.Data)
	}
}

func (c *Channel) invoke(event string, h Handler, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", zap.String("event", event), zap.Any("panic", r))
		}
	}()
	h(data)
}

// Subscription is the handle returned by On.
type Subscription struct {
	c     *Channel
	event string
	id    uint64
	once  sync.Once
}

// Unsubscribe removes the handler. Further calls do nothing.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.c.remove(s.event, s.id) })
}
