package broker

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonwraymond/resilientmq/resilience"
)

var (
	_ resilience.Declaration[*amqp.Channel]      = (*ExchangeDeclaration)(nil)
	_ resilience.QueueDeclaration[*amqp.Channel] = (*QueueDeclaration)(nil)
	_ resilience.Declaration[*amqp.Channel]      = (*ConsumerDeclaration)(nil)
)

// ExchangeDeclaration is a replayable exchange-declare call, captured once
// at first declare time and re-invoked against a fresh channel during
// recovery.
type ExchangeDeclaration struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp.Table
}

// Invoke satisfies resilience.Declaration[*amqp.Channel].
func (d *ExchangeDeclaration) Invoke(ch *amqp.Channel) (string, error) {
	err := ch.ExchangeDeclare(d.Name, d.Kind, d.Durable, d.AutoDelete, d.Internal, d.NoWait, d.Args)
	return d.Name, err
}

// QueueDeclaration is a replayable queue-declare call. Name may be empty for
// a server-generated name, in which case CurrentName reports the empty
// string until the first successful declare sets it via SetName.
type QueueDeclaration struct {
	name string

	Durable    bool
	AutoDelete bool
	Exclusive  bool
	NoWait     bool
	Args       amqp.Table
}

// NewQueueDeclaration constructs a declaration for name, which may be empty
// to request a server-generated name.
func NewQueueDeclaration(name string) *QueueDeclaration {
	return &QueueDeclaration{name: name}
}

// Invoke satisfies resilience.Declaration[*amqp.Channel].
func (d *QueueDeclaration) Invoke(ch *amqp.Channel) (string, error) {
	q, err := ch.QueueDeclare(d.name, d.Durable, d.AutoDelete, d.Exclusive, d.NoWait, d.Args)
	if err != nil {
		return "", err
	}
	return q.Name, nil
}

// CurrentName satisfies resilience.QueueDeclaration[*amqp.Channel].
func (d *QueueDeclaration) CurrentName() string { return d.name }

// SetName satisfies resilience.QueueDeclaration[*amqp.Channel].
func (d *QueueDeclaration) SetName(name string) { d.name = name }

// ConsumerDeclaration is a replayable consume call. Unlike exchange and
// queue declarations, a consumer's recovery doesn't just re-invoke the same
// call: the façade needs the fresh delivery channel back, so Replay is
// distinct from Invoke.
type ConsumerDeclaration struct {
	Queue     string
	Consumer  string
	AutoAck   bool
	Exclusive bool
	NoLocal   bool
	NoWait    bool
	Args      amqp.Table
}

// Invoke satisfies resilience.Declaration[*amqp.Channel]; it discards the
// delivery channel, matching the interface's (string, error) shape used
// uniformly across recovery bookkeeping.
func (d *ConsumerDeclaration) Invoke(ch *amqp.Channel) (string, error) {
	_, err := d.Replay(ch)
	return d.Consumer, err
}

// Replay re-issues the consume call against ch and returns the fresh
// delivery channel, for the façade to splice back into the caller-visible
// stream after a reconnect.
func (d *ConsumerDeclaration) Replay(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	return ch.Consume(d.Queue, d.Consumer, d.AutoAck, d.Exclusive, d.NoLocal, d.NoWait, d.Args)
}
