package channel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// ErrClosed is returned by Send after the channel has been closed.
var ErrClosed = errors.New("channel is closed")

// Transport delivers serialized messages to the frame.
type Transport interface {
	PostMessage(data []byte, targetOrigin string) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(data []byte, targetOrigin string) error

// PostMessage calls f.
func (f TransportFunc) PostMessage(data []byte, targetOrigin string) error {
	return f(data, targetOrigin)
}

// RawEvent is an inbound message as received from the transport.
type RawEvent struct {
	Origin string
	Data   []byte
}

// Handler receives classified payloads. It is called without the channel
// lock held and may call Send.
type Handler func(Payload)

// ErrorNormalizer rewrites error reports before they are emitted.
type ErrorNormalizer func(ErrorReport) ErrorReport

// DropReason explains why an inbound message was discarded.
type DropReason string

const (
	DropOrigin    DropReason = "origin"
	DropMalformed DropReason = "malformed"
	DropUnready   DropReason = "unready"
	DropClosed    DropReason = "closed"
)

// Observer is notified of channel activity, typically for metrics.
type Observer interface {
	MessageQueued()
	MessageDelivered()
	DeliveryFailed()
	MessageDropped(reason DropReason)
	HandshakeCompleted()
}

type nopObserver struct{}

func (nopObserver) MessageQueued()            {}
func (nopObserver) MessageDelivered()         {}
func (nopObserver) DeliveryFailed()           {}
func (nopObserver) MessageDropped(DropReason) {}
func (nopObserver) HandshakeCompleted()       {}

// Option configures a Channel.
type Option func(*Channel)

// WithHandler sets the payload handler.
func WithHandler(h Handler) Option {
	return func(c *Channel) { c.handler = h }
}

// WithErrorNormalizer sets the rewrite applied to every ErrorReport.
func WithErrorNormalizer(n ErrorNormalizer) Option {
	return func(c *Channel) { c.normalize = n }
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(c *Channel) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l.Named("channel")
		}
	}
}

// Channel is the host side of the message link to one embedded frame.
type Channel struct {
	targetOrigin string
	transport    Transport
	handler      Handler
	normalize    ErrorNormalizer
	observer     Observer
	logger       *zap.Logger

	// mu serializes Send, Receive and Close. It is held across transport
	// delivery so messages reach the frame in enqueue order.
	mu      sync.Mutex
	ready   bool
	closed  bool
	pending [][]byte
}

// New creates a channel delivering through transport to targetOrigin.
func New(transport Transport, targetOrigin string, opts ...Option) *Channel {
	c := &Channel{
		targetOrigin: targetOrigin,
		transport:    transport,
		observer:     nopObserver{},
		logger:       zap.NewNop(),
		pending:      make([][]byte, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Origin returns the expected frame origin.
func (c *Channel) Origin() string {
	return c.targetOrigin
}

// Ready reports whether the handshake has been received.
func (c *Channel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Pending returns the number of queued messages.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Send serializes message and delivers it, or queues it until the frame is
// ready.
func (c *Channel) Send(message any) error {
	data, err := sonic.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	return c.SendRaw(data)
}

// SendRaw delivers an already serialized message, or queues it until the
// frame is ready.
func (c *Channel) SendRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.ready {
		c.pending = append(c.pending, append([]byte(nil), data...))
		c.observer.MessageQueued()
		return nil
	}
	c.deliver(data)
	return nil
}

// Receive handles one inbound message from the transport.
func (c *Channel) Receive(ev RawEvent) {
	payloads := c.accept(ev)
	if c.handler == nil {
		return
	}
	for _, p := range payloads {
		c.handler(p)
	}
}

func (c *Channel) accept(ev RawEvent) []Payload {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.drop(DropClosed, ev.Origin)
		return nil
	}
	if ev.Origin != c.targetOrigin {
		c.drop(DropOrigin, ev.Origin)
		return nil
	}

	v, err := parse(ev.Data)
	if err != nil {
		c.drop(DropMalformed, ev.Origin)
		return nil
	}

	if !c.ready {
		if !isHandshake(v) {
			c.drop(DropUnready, ev.Origin)
			return nil
		}
		c.becomeReady()
		return []Payload{Handshake{}}
	}

	payloads := classify(v)
	for i, p := range payloads {
		if report, ok := p.(ErrorReport); ok && c.normalize != nil {
			payloads[i] = c.normalize(report)
		}
	}
	return payloads
}

// becomeReady flips readiness and flushes the queue. Callers hold c.mu.
func (c *Channel) becomeReady() {
	c.ready = true
	queued := c.pending
	c.pending = nil
	for _, data := range queued {
		c.deliver(data)
	}
	c.observer.HandshakeCompleted()
	c.logger.Debug("Frame ready", zap.Int("flushed", len(queued)))
}

// deliver hands data to the transport. Callers hold c.mu.
func (c *Channel) deliver(data []byte) {
	if err := c.transport.PostMessage(data, c.targetOrigin); err != nil {
		c.observer.DeliveryFailed()
		c.logger.Warn("Failed to deliver message", zap.Error(err))
		return
	}
	c.observer.MessageDelivered()
}

func (c *Channel) drop(reason DropReason, origin string) {
	c.observer.MessageDropped(reason)
	c.logger.Debug("Dropped inbound message",
		zap.String("reason", string(reason)),
		zap.String("origin", origin),
	)
}

// Close tears the channel down. Queued messages are discarded.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if n := len(c.pending); n > 0 {
		c.logger.Debug("Discarding queued messages", zap.Int("count", n))
	}
	c.pending = nil
	return nil
}
