package broker

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonwraymond/resilientmq/resilience"
	"github.com/jonwraymond/resilientmq/topology"
)

// Channel wraps an *amqp.Channel behind a resilience.Resource, retrying
// publish, consume, and declare calls per policy and replaying its
// declared topology once a supervisor hands it a freshly recovered
// channel.
type Channel struct {
	parent *Connection

	mu sync.RWMutex
	ch *amqp.Channel

	res      *resilience.Resource[*amqp.Channel]
	registry *topology.Registry[*amqp.Channel]
	bulkhead *resilience.Bulkhead
}

type channelCapability struct {
	ch *Channel
}

func (cc *channelCapability) GetRecoveryChannel(ctx context.Context) (*amqp.Channel, error) {
	cc.ch.parent.mu.RLock()
	conn := cc.ch.parent.conn
	cc.ch.parent.mu.RUnlock()
	return conn.Channel()
}

func (cc *channelCapability) ThrowOnRecoveryFailure() bool { return true }

func (cc *channelCapability) AfterClose() {
	cc.ch.parent.forget(cc.ch)
}

func newChannel(parent *Connection, raw *amqp.Channel, policy resilience.Policy) *Channel {
	ch := &Channel{
		parent:   parent,
		ch:       raw,
		registry: topology.NewRegistry[*amqp.Channel](),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 16}),
	}
	ch.res = resilience.NewResource[*amqp.Channel](policy, &channelCapability{ch: ch}, ClassifyError, parent.supervisorToken, parent.logger)
	return ch
}

// Registry exposes this channel's declared topology, for a supervisor to
// replay during recovery.
func (ch *Channel) Registry() *topology.Registry[*amqp.Channel] { return ch.registry }

// Resource exposes the underlying retry engine.
func (ch *Channel) Resource() *resilience.Resource[*amqp.Channel] { return ch.res }

// Raw returns the current underlying *amqp.Channel.
func (ch *Channel) Raw() *amqp.Channel {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.ch
}

// Swap replaces the underlying channel after a supervisor recovery.
func (ch *Channel) Swap(raw *amqp.Channel) {
	ch.mu.Lock()
	ch.ch = raw
	ch.mu.Unlock()
}

func (ch *Channel) invoke(ctx context.Context, op func(*amqp.Channel) (any, error)) (any, error) {
	return ch.res.Invoke(ctx, func(ctx context.Context) (any, error) {
		ch.mu.RLock()
		raw := ch.ch
		ch.mu.RUnlock()
		return op(raw)
	}, resilience.InvokeOptions{Recoverable: true, LogFailures: true})
}

// DeclareExchange declares decl and records it for recovery.
func (ch *Channel) DeclareExchange(ctx context.Context, decl *ExchangeDeclaration) error {
	_, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
		name, declErr := decl.Invoke(raw)
		return name, declErr
	})
	if err != nil {
		return err
	}
	ch.registry.AddExchange(decl.Name, decl)
	return nil
}

// DeclareQueue declares decl and records it for recovery, returning the
// effective (possibly server-assigned) queue name.
func (ch *Channel) DeclareQueue(ctx context.Context, decl *QueueDeclaration) (string, error) {
	name, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
		n, declErr := decl.Invoke(raw)
		return n, declErr
	})
	if err != nil {
		return "", err
	}
	ch.registry.AddQueue(decl)
	return name.(string), nil
}

// BindExchange binds an exchange to another exchange and records the
// binding, arguments included, for recovery.
func (ch *Channel) BindExchange(ctx context.Context, b resilience.Binding) error {
	_, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
		return nil, raw.ExchangeBind(b.Destination, b.RoutingKey, b.Source, false, amqp.Table(b.Arguments))
	})
	if err != nil {
		return err
	}
	ch.registry.AddExchangeBinding(b)
	return nil
}

// BindQueue binds a queue to an exchange and records the binding, arguments
// included, for recovery.
func (ch *Channel) BindQueue(ctx context.Context, b resilience.Binding) error {
	_, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
		return nil, raw.QueueBind(b.Destination, b.RoutingKey, b.Source, false, amqp.Table(b.Arguments))
	})
	if err != nil {
		return err
	}
	ch.registry.AddQueueBinding(b)
	return nil
}

// Consume starts consuming per decl and records it for recovery.
func (ch *Channel) Consume(ctx context.Context, decl *ConsumerDeclaration) (<-chan amqp.Delivery, error) {
	deliveries, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
		d, consumeErr := decl.Replay(raw)
		return d, consumeErr
	})
	if err != nil {
		return nil, err
	}
	ch.registry.AddConsumer(decl)
	return deliveries.(<-chan amqp.Delivery), nil
}

// Qos sets the channel's prefetch settings. Unlike declarations, Qos isn't
// tracked for replay — a supervisor reapplies it explicitly as the first
// recovery step, before any declaration.
func (ch *Channel) Qos(ctx context.Context, prefetchCount, prefetchSize int, global bool) error {
	_, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
		return nil, raw.Qos(prefetchCount, prefetchSize, global)
	})
	return err
}

// Publish publishes msg, bounded by the channel's bulkhead so a burst of
// concurrent publishers can't exhaust the connection's flow-control
// window.
func (ch *Channel) Publish(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return ch.bulkhead.Execute(ctx, func(ctx context.Context) error {
		_, err := ch.invoke(ctx, func(raw *amqp.Channel) (any, error) {
			return nil, raw.Publish(exchange, key, mandatory, immediate, msg)
		})
		return err
	})
}

// Close closes the underlying channel.
func (ch *Channel) Close() error {
	return ch.res.Close(func() error {
		ch.mu.RLock()
		raw := ch.ch
		ch.mu.RUnlock()
		if raw == nil {
			return nil
		}
		return raw.Close()
	})
}

// IsClosed reports whether Close has completed.
func (ch *Channel) IsClosed() bool { return ch.res.IsClosed() }
