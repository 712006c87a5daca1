package broker

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/resilientmq/resilience"
)

// Supervisor watches one Connection for a hard closure and drives recovery:
// redialing, reopening each child Channel, and replaying its declared
// topology in the fixed order exchanges, exchange bindings, queues, queue
// bindings, consumers — the order recovery must run in so a binding never
// references a not-yet-declared exchange or queue.
type Supervisor struct {
	conn   *Connection
	dialer *Dialer
	token  any
	logger resilience.ResourceLogger

	sf singleflight.Group
}

// NewSupervisor constructs a Supervisor for conn. token must be the same
// value passed to NewConnection (and to every Channel it opens), so
// recovery-internal invocations recognize the gate they themselves closed.
func NewSupervisor(conn *Connection, dialer *Dialer, token any, logger resilience.ResourceLogger) *Supervisor {
	return &Supervisor{conn: conn, dialer: dialer, token: token, logger: logger}
}

// Run watches the connection for hard closures and recovers from each one
// until ctx is cancelled or the connection is explicitly closed.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		notify := make(chan *amqp.Error, 1)
		s.conn.NotifyClose(notify)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case closeErr, ok := <-notify:
			if s.conn.IsClosed() {
				return nil
			}
			if !ok {
				continue
			}
			if err := s.recover(ctx, closeErr); err != nil {
				return err
			}
		}
	}
}

// recover dedupes concurrent recovery triggers via singleflight — every
// channel observing the same hard closure collapses onto one redial — and
// restarts the whole pass if a recovery step itself escalates a
// connection-level failure, per the recovery algorithm's restart rule.
func (s *Supervisor) recover(ctx context.Context, cause *amqp.Error) error {
	for {
		_, err, _ := s.sf.Do("recover", func() (any, error) {
			return nil, s.runRecovery(ctx)
		})
		if err == nil {
			return nil
		}
		if ClassifyError(err).ConnectionLevel {
			s.warn("connection recovery failed, restarting", "cause", cause, "error", err)
			continue
		}
		return err
	}
}

func (s *Supervisor) runRecovery(ctx context.Context) error {
	s.conn.Resource().Gate.Close(s.token)
	defer s.conn.Resource().Gate.Open(s.token)

	children := s.conn.Children()
	for _, ch := range children {
		ch.Resource().Gate.Close(s.token)
	}
	defer func() {
		for _, ch := range children {
			ch.Resource().Gate.Open(s.token)
		}
	}()

	rawConn, err := s.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	s.conn.Swap(rawConn)

	for _, ch := range children {
		if err := s.recoverChannel(ch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) recoverChannel(ch *Channel) error {
	raw, err := s.conn.Raw().Channel()
	if err != nil {
		return err
	}
	ch.Swap(raw)

	res := ch.Resource()

	for _, ex := range ch.Registry().Exchanges() {
		if err := res.RecoverExchange(raw, ex.Name, ex.Decl); err != nil {
			return err
		}
	}
	if err := res.RecoverExchangeBindings(raw, ch.Registry().ExchangeBindings(), bindExchange); err != nil {
		return err
	}
	for _, q := range ch.Registry().Queues() {
		if _, err := res.RecoverQueue(raw, q); err != nil {
			return err
		}
	}
	if err := res.RecoverQueueBindings(raw, ch.Registry().QueueBindings(), bindQueue); err != nil {
		return err
	}
	for _, consumer := range ch.Registry().Consumers() {
		cd, ok := consumer.(*ConsumerDeclaration)
		if !ok {
			continue
		}
		if _, err := cd.Replay(raw); err != nil {
			return err
		}
	}
	return nil
}

func bindExchange(ch *amqp.Channel, b resilience.Binding) error {
	return ch.ExchangeBind(b.Destination, b.RoutingKey, b.Source, false, amqp.Table(b.Arguments))
}

func bindQueue(ch *amqp.Channel, b resilience.Binding) error {
	return ch.QueueBind(b.Destination, b.RoutingKey, b.Source, false, amqp.Table(b.Arguments))
}

func (s *Supervisor) warn(msg string, kv ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, kv...)
}

// Cluster runs a Supervisor per connection concurrently, so recovering one
// connection never blocks recovery of the others.
type Cluster struct {
	supervisors []*Supervisor
}

// NewCluster constructs a Cluster over supervisors.
func NewCluster(supervisors ...*Supervisor) *Cluster {
	return &Cluster{supervisors: supervisors}
}

// Run starts every supervisor and waits for ctx cancellation or the first
// supervisor to return an error, at which point the rest are cancelled.
func (c *Cluster) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sv := range c.supervisors {
		g.Go(func() error { return sv.Run(ctx) })
	}
	return g.Wait()
}
