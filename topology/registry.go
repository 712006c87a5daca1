// Package topology tracks the exchanges, queues, bindings, and consumers a
// connection or channel has declared, so a supervisor can replay them
// against a freshly recovered channel in the order they were first
// declared.
package topology

import (
	"sync"

	"github.com/jonwraymond/resilientmq/resilience"
)

// ExchangeEntry pairs a declaration with the name it was declared under —
// exchanges, unlike queues, never acquire a server-assigned name, but the
// name is still needed for logging during recovery.
type ExchangeEntry[C any] struct {
	Name string
	Decl resilience.Declaration[C]
}

// Registry holds one connection's or channel's declared topology, one
// mutex-guarded slice per kind so a recovery pass walking exchanges doesn't
// block a caller declaring a new queue concurrently.
type Registry[C any] struct {
	exchangesMu sync.RWMutex
	exchanges   []ExchangeEntry[C]

	queuesMu sync.RWMutex
	queues   []resilience.QueueDeclaration[C]

	exchangeBindingsMu sync.RWMutex
	exchangeBindings   []resilience.Binding

	queueBindingsMu sync.RWMutex
	queueBindings   []resilience.Binding

	consumersMu sync.RWMutex
	consumers   []resilience.Declaration[C]
}

// NewRegistry returns an empty Registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{}
}

// AddExchange records an exchange declaration for later recovery.
func (r *Registry[C]) AddExchange(name string, decl resilience.Declaration[C]) {
	r.exchangesMu.Lock()
	defer r.exchangesMu.Unlock()
	r.exchanges = append(r.exchanges, ExchangeEntry[C]{Name: name, Decl: decl})
}

// AddQueue records a queue declaration for later recovery.
func (r *Registry[C]) AddQueue(decl resilience.QueueDeclaration[C]) {
	r.queuesMu.Lock()
	defer r.queuesMu.Unlock()
	r.queues = append(r.queues, decl)
}

// AddExchangeBinding records an exchange-to-exchange binding.
func (r *Registry[C]) AddExchangeBinding(b resilience.Binding) {
	r.exchangeBindingsMu.Lock()
	defer r.exchangeBindingsMu.Unlock()
	r.exchangeBindings = append(r.exchangeBindings, b)
}

// AddQueueBinding records a queue-to-exchange binding.
func (r *Registry[C]) AddQueueBinding(b resilience.Binding) {
	r.queueBindingsMu.Lock()
	defer r.queueBindingsMu.Unlock()
	r.queueBindings = append(r.queueBindings, b)
}

// AddConsumer records a consumer declaration.
func (r *Registry[C]) AddConsumer(decl resilience.Declaration[C]) {
	r.consumersMu.Lock()
	defer r.consumersMu.Unlock()
	r.consumers = append(r.consumers, decl)
}

// Exchanges returns a point-in-time copy of the declared exchanges, safe to
// range over without holding the registry's lock.
func (r *Registry[C]) Exchanges() []ExchangeEntry[C] {
	r.exchangesMu.RLock()
	defer r.exchangesMu.RUnlock()
	out := make([]ExchangeEntry[C], len(r.exchanges))
	copy(out, r.exchanges)
	return out
}

// Queues returns a point-in-time copy of the declared queues.
func (r *Registry[C]) Queues() []resilience.QueueDeclaration[C] {
	r.queuesMu.RLock()
	defer r.queuesMu.RUnlock()
	out := make([]resilience.QueueDeclaration[C], len(r.queues))
	copy(out, r.queues)
	return out
}

// Consumers returns a point-in-time copy of the declared consumers.
func (r *Registry[C]) Consumers() []resilience.Declaration[C] {
	r.consumersMu.RLock()
	defer r.consumersMu.RUnlock()
	out := make([]resilience.Declaration[C], len(r.consumers))
	copy(out, r.consumers)
	return out
}

// ExchangeBindings returns a resilience.BindingIterator over a snapshot of
// the registered exchange-to-exchange bindings, taken under lock — the
// caller never receives the registry's mutex itself, only a closure bounded
// to the snapshot it captured.
func (r *Registry[C]) ExchangeBindings() resilience.BindingIterator {
	r.exchangeBindingsMu.RLock()
	defer r.exchangeBindingsMu.RUnlock()
	return bindingIterator(r.exchangeBindings)
}

// QueueBindings returns a resilience.BindingIterator over a snapshot of the
// registered queue-to-exchange bindings, symmetric to ExchangeBindings.
func (r *Registry[C]) QueueBindings() resilience.BindingIterator {
	r.queueBindingsMu.RLock()
	defer r.queueBindingsMu.RUnlock()
	return bindingIterator(r.queueBindings)
}

func bindingIterator(bindings []resilience.Binding) resilience.BindingIterator {
	snapshot := make([]resilience.Binding, len(bindings))
	copy(snapshot, bindings)
	return func(visit func(resilience.Binding) bool) {
		for _, b := range snapshot {
			if !visit(b) {
				return
			}
		}
	}
}
