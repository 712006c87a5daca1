package broker

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonwraymond/resilientmq/resilience"
)

// Connection wraps an *amqp.Connection behind a resilience.Resource,
// retrying channel-open failures per policy and fanning a hard closure out
// to every Channel it has opened.
type Connection struct {
	mu   sync.RWMutex
	conn *amqp.Connection

	res           *resilience.Resource[*amqp.Channel]
	channelPolicy resilience.Policy
	logger        resilience.ResourceLogger

	supervisorToken any

	childrenMu sync.Mutex
	children   map[*Channel]struct{}
}

type connectionCapability struct {
	c *Connection
}

func (cc *connectionCapability) GetRecoveryChannel(ctx context.Context) (*amqp.Channel, error) {
	cc.c.mu.RLock()
	conn := cc.c.conn
	cc.c.mu.RUnlock()
	return conn.Channel()
}

func (cc *connectionCapability) ThrowOnRecoveryFailure() bool { return false }

func (cc *connectionCapability) AfterClose() {
	cc.c.childrenMu.Lock()
	children := make([]*Channel, 0, len(cc.c.children))
	for ch := range cc.c.children {
		children = append(children, ch)
	}
	cc.c.children = nil
	cc.c.childrenMu.Unlock()

	for _, ch := range children {
		_ = ch.Close()
	}
}

// NewConnection wraps an already-dialed *amqp.Connection. policy governs
// retries of connection-level operations (principally obtaining a new
// Channel); channelPolicy is the default handed to every Channel this
// Connection opens. supervisorToken must be the same value the owning
// supervisor later passes to Gate.Close, so that recovery-internal calls
// don't deadlock against their own closure.
func NewConnection(conn *amqp.Connection, policy, channelPolicy resilience.Policy, supervisorToken any, logger resilience.ResourceLogger) *Connection {
	c := &Connection{
		conn:            conn,
		channelPolicy:   channelPolicy,
		logger:          logger,
		supervisorToken: supervisorToken,
		children:        make(map[*Channel]struct{}),
	}
	c.res = resilience.NewResource[*amqp.Channel](policy, &connectionCapability{c: c}, ClassifyError, supervisorToken, logger)
	return c
}

// Resource exposes the underlying retry engine, so a supervisor can close
// and reopen its Gate around a recovery pass.
func (c *Connection) Resource() *resilience.Resource[*amqp.Channel] { return c.res }

// Raw returns the current underlying *amqp.Connection. Callers must not
// retain it across a reconnect.
func (c *Connection) Raw() *amqp.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Swap replaces the underlying connection after a supervisor redial. It
// does not touch existing Channel wrappers — those are recovered
// separately, once the supervisor obtains a fresh raw channel for each.
func (c *Connection) Swap(conn *amqp.Connection) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// NotifyClose forwards the underlying connection's close notifications, a
// thin pass-through the supervisor uses to learn of a hard closure.
func (c *Connection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.NotifyClose(receiver)
}

// Channel opens a new Channel on this connection, retrying transient
// channel-open failures per the connection's policy.
func (c *Connection) Channel(ctx context.Context) (*Channel, error) {
	val, err := c.res.Invoke(ctx, func(ctx context.Context) (any, error) {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		raw, chErr := conn.Channel()
		return raw, chErr
	}, resilience.InvokeOptions{Recoverable: true, LogFailures: true})
	if err != nil {
		return nil, err
	}

	raw := val.(*amqp.Channel)
	ch := newChannel(c, raw, c.channelPolicy)

	c.childrenMu.Lock()
	c.children[ch] = struct{}{}
	c.childrenMu.Unlock()

	return ch, nil
}

// Children returns a point-in-time snapshot of the Channels currently open
// on this connection, for a supervisor to recover after a redial.
func (c *Connection) Children() []*Channel {
	c.childrenMu.Lock()
	defer c.childrenMu.Unlock()
	out := make([]*Channel, 0, len(c.children))
	for ch := range c.children {
		out = append(out, ch)
	}
	return out
}

// forget removes ch from this connection's child set, called once a
// Channel has closed itself.
func (c *Connection) forget(ch *Channel) {
	c.childrenMu.Lock()
	delete(c.children, ch)
	c.childrenMu.Unlock()
}

// Close closes the underlying connection, then every child Channel still
// open.
func (c *Connection) Close() error {
	return c.res.Close(func() error {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		return conn.Close()
	})
}

// IsClosed reports whether Close has completed.
func (c *Connection) IsClosed() bool { return c.res.IsClosed() }

// GateOpen reports whether this connection's Gate is currently open, i.e.
// no supervisor recovery pass is in flight. Satisfies health.BrokerConnection.
func (c *Connection) GateOpen() bool { return c.res.Gate.IsOpen() }
