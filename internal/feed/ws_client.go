package feed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/observability"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// Reconnect controls delay and attempt budget between reconnects.
	Reconnect ReconnectPolicy
	// HandshakeTimeout is the dial timeout.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubBuffer is the per-subscription channel buffer.
	SubBuffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		Reconnect:        DefaultReconnectPolicy(),
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubBuffer:        1024,
	}
}

// WSClient implements Client over a single gorilla/websocket
// connection. At most one socket is live at a time and at most one
// reconnect timer is pending at a time.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected atomic.Bool
	closed    atomic.Bool

	subs      map[uint64]*subscriber
	subsMu    sync.Mutex
	nextSubID atomic.Uint64

	// retryMu guards the attempt counter and the pending timer handle.
	retryMu          sync.Mutex
	attempts         int
	reconnectTimer   *time.Timer
	reconnectPending bool

	pingOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

type subscriber struct {
	ch     chan domain.Event
	topics map[Topic]struct{}

	// mu serializes delivery against close so a cancel racing an
	// inbound message can never close the channel under a sender.
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

// deliver forwards one event unless the subscriber is closed. Blocks
// while the buffer is full; a concurrent close or client shutdown
// unblocks it.
func (s *subscriber) deliver(event domain.Event, clientDone <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	case <-s.done:
	case <-clientDone:
	}
}

// close unblocks any in-flight deliver first, then closes the event
// channel under the same lock so receivers see end-of-stream exactly
// once. Safe to call more than once.
func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// NewWSClient creates a client for the given feed endpoint. No
// connection is opened until Connect is called.
func NewWSClient(endpoint string, config *WSClientConfig, logger *log.Logger) *WSClient {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SubBuffer <= 0 {
		cfg.SubBuffer = 1024
	}
	if logger == nil {
		logger = log.Default()
	}

	return &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		subs:     make(map[uint64]*subscriber),
		done:     make(chan struct{}),
	}
}

var _ Client = (*WSClient)(nil)

// Connect dials the feed, replays topic subscriptions and starts the
// read loop. On failure the caller decides; no retry happens here.
func (c *WSClient) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(true)

	c.retryMu.Lock()
	c.attempts = 0
	c.retryMu.Unlock()

	observability.SetFeedConnected(true)

	if err := c.sendSubscriptions(); err != nil {
		c.logger.Printf("[feed] subscribe after connect: %v", err)
	}

	c.wg.Add(1)
	go c.readLoop(conn)

	c.pingOnce.Do(func() {
		c.wg.Add(1)
		go c.pingLoop()
	})

	return nil
}

// Subscribe registers a handle for the given topics. Subscribe frames
// are written immediately when connected and replayed after every
// reconnect.
func (c *WSClient) Subscribe(_ context.Context, topics ...Topic) (*Subscription, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}
	if len(topics) == 0 {
		topics = []Topic{TopicNewToken}
	}

	sub := &subscriber{
		ch:     make(chan domain.Event, c.config.SubBuffer),
		topics: make(map[Topic]struct{}, len(topics)),
		done:   make(chan struct{}),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	id := c.nextSubID.Add(1)
	c.subsMu.Lock()
	c.subs[id] = sub
	c.subsMu.Unlock()

	if c.IsConnected() {
		for _, t := range topics {
			if err := c.writeJSON(wireRequest{Method: string(t)}); err != nil {
				c.logger.Printf("[feed] write subscribe %s: %v", t, err)
				break
			}
		}
	}

	return &Subscription{
		C:      sub.ch,
		cancel: func() { c.unsubscribe(id) },
	}, nil
}

// unsubscribe removes a handle and drops feed topics no other handle
// still wants.
func (c *WSClient) unsubscribe(id uint64) {
	c.subsMu.Lock()
	sub, ok := c.subs[id]
	if !ok {
		c.subsMu.Unlock()
		return
	}
	delete(c.subs, id)

	orphaned := make([]Topic, 0, len(sub.topics))
	for t := range sub.topics {
		wanted := false
		for _, other := range c.subs {
			if _, ok := other.topics[t]; ok {
				wanted = true
				break
			}
		}
		if !wanted {
			orphaned = append(orphaned, t)
		}
	}
	c.subsMu.Unlock()

	sub.close()

	if c.IsConnected() {
		for _, t := range orphaned {
			if method := unsubscribeMethod(t); method != "" {
				if err := c.writeJSON(wireRequest{Method: method}); err != nil {
					c.logger.Printf("[feed] write unsubscribe %s: %v", t, err)
				}
			}
		}
	}
}

// IsConnected reports whether a live socket is currently open.
func (c *WSClient) IsConnected() bool {
	return c.connected.Load() && !c.closed.Load()
}

// Close tears the connection down permanently: pending reconnect timer
// cancelled, socket closed, subscription channels closed. The client
// never reconnects after Close.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}

	close(c.done)

	c.retryMu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectPending = false
	c.retryMu.Unlock()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
	c.connected.Store(false)
	observability.SetFeedConnected(false)

	c.subsMu.Lock()
	for id, sub := range c.subs {
		sub.close()
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.wg.Wait()
	return nil
}

// sendSubscriptions replays subscribe frames for every topic any
// registered handle wants. Called on connect and reconnect.
func (c *WSClient) sendSubscriptions() error {
	c.subsMu.Lock()
	topics := make(map[Topic]struct{})
	for _, sub := range c.subs {
		for t := range sub.topics {
			topics[t] = struct{}{}
		}
	}
	c.subsMu.Unlock()

	for t := range topics {
		if err := c.writeJSON(wireRequest{Method: string(t)}); err != nil {
			return err
		}
	}
	return nil
}

// writeJSON writes a request frame on the current socket.
func (c *WSClient) writeJSON(req wireRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(req)
}

// readLoop reads messages from one socket until it dies, then hands
// off to the reconnect scheduler. A fresh readLoop is started per
// successful connect.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			observability.SetFeedConnected(false)
			if c.closed.Load() {
				return
			}
			c.logger.Printf("[feed] read: %v", err)
			c.scheduleReconnect()
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage decodes one inbound payload and dispatches it.
// Malformed or unrecognized payloads are counted and skipped; nothing
// here ever blocks the next message behind an error.
func (c *WSClient) handleMessage(message []byte) {
	event, ok := Decode(message)
	if !ok {
		observability.RecordEventUnrecognized()
		return
	}
	observability.RecordEventReceived(event.Kind.String())

	c.subsMu.Lock()
	targets := make([]*subscriber, 0, len(c.subs))
	for _, sub := range c.subs {
		if _, want := sub.topics[topicForKind(event.Kind)]; want {
			targets = append(targets, sub)
		}
	}
	c.subsMu.Unlock()

	for _, sub := range targets {
		sub.deliver(event, c.done)
	}
}

// topicForKind maps an event kind back to its subscription topic.
func topicForKind(k domain.EventKind) Topic {
	switch k {
	case domain.KindNewToken:
		return TopicNewToken
	case domain.KindMigration:
		return TopicMigration
	case domain.KindTrade:
		return TopicTrade
	default:
		return ""
	}
}

// scheduleReconnect arms the single reconnect timer. If a timer is
// already pending nothing happens; this is what prevents duplicate
// timers and connection storms when close and error fire together.
func (c *WSClient) scheduleReconnect() {
	if c.closed.Load() {
		return
	}

	c.retryMu.Lock()
	defer c.retryMu.Unlock()

	if c.reconnectPending {
		return
	}

	c.attempts++
	delay, ok := c.config.Reconnect.Delay(c.attempts)
	if !ok {
		c.logger.Printf("[feed] giving up after %d reconnect attempts; ingestion is dark until restart", c.attempts-1)
		return
	}

	c.reconnectPending = true
	observability.RecordReconnectAttempt()
	c.logger.Printf("[feed] reconnect attempt %d in %v", c.attempts, delay)

	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
}

// reconnect is the timer callback: clears the pending flag, closes any
// stale socket and dials again. Failure re-arms the timer.
func (c *WSClient) reconnect() {
	c.retryMu.Lock()
	c.reconnectPending = false
	c.reconnectTimer = nil
	c.retryMu.Unlock()

	if c.closed.Load() {
		return
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.HandshakeTimeout)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		c.logger.Printf("[feed] reconnect: %v", err)
		c.scheduleReconnect()
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// wireRequest is the outbound subscription frame.
type wireRequest struct {
	Method string `json:"method"`
}
