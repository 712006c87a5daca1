package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorKind classifies a caller-observed failure for retry and propagation
// purposes. The zero value, KindApplication, is the conservative default —
// an error nobody has reason to believe is transient.
type ErrorKind int

const (
	KindApplication ErrorKind = iota
	KindTransportShutdown
	KindChannelShutdown
	KindIO
	KindAuthentication
)

// Classification is what a Classifier reduces an error to.
type Classification struct {
	Kind ErrorKind

	// ConnectionLevel is true when the shutdown is connection-wide (a
	// "hard" close) rather than scoped to one channel.
	ConnectionLevel bool

	// Recoverable qualifies a ChannelShutdown: whether this particular
	// occurrence (e.g. its reply code) is judged retryable. Ignored for
	// other Kinds, whose retryability is fixed by Kind alone.
	Recoverable bool
}

// Classifier reduces an arbitrary error, possibly wrapping a transport
// library's own shutdown type, to a Classification. Resource never
// inspects err's concrete type itself — that inspection belongs to the
// external collaborator that owns the transport's error types.
type Classifier func(err error) Classification

// Declaration is a replayable topology operation: a captured
// declare/consume/bind call that can be re-invoked against a freshly
// obtained channel of type C during recovery.
type Declaration[C any] interface {
	Invoke(ch C) (string, error)
}

// QueueDeclaration is a Declaration that additionally exposes the mutable
// server-assigned name a queue recovery may produce.
type QueueDeclaration[C any] interface {
	Declaration[C]

	// CurrentName returns the name this declaration was last known by —
	// empty for a queue originally declared anonymously.
	CurrentName() string

	// SetName records a server-assigned name after a successful recovery.
	SetName(name string)
}

// Binding is a source/destination/routing-key triple plus any broker-
// specific binding arguments (e.g. a headers exchange's x-match), replayed
// during exchange- or queue-binding recovery. Arguments is left as
// map[string]any rather than a transport type so this package never
// imports a wire library just to describe a binding.
type Binding struct {
	Source      string
	Destination string
	RoutingKey  string
	Arguments   map[string]any
}

// BindingIterator visits each binding in a registry's own insertion order,
// walking a snapshot the registry copied under its lock when it built the
// iterator — the caller never receives a raw monitor to synchronize on
// itself. Returning false from visit stops iteration early.
type BindingIterator func(visit func(Binding) bool)

// RecoveryCapability is the one seam between the engine and the two
// concrete resources it drives (a connection and a channel), which share
// no fields and so gain nothing from a common base type.
type RecoveryCapability[C any] interface {
	// GetRecoveryChannel obtains the channel recovery should run against:
	// a fresh channel on the connection, for a connection-owned resource,
	// or an already-recovered sibling channel, for a channel-owned one.
	GetRecoveryChannel(ctx context.Context) (C, error)

	// ThrowOnRecoveryFailure reports whether a failed recovery step
	// should escalate (typically true for channels) or be logged and
	// skipped (typically false for connections, since a connection-level
	// failure here means the whole recovery pass restarts regardless).
	ThrowOnRecoveryFailure() bool

	// AfterClose runs once, the first time this resource transitions to
	// closed.
	AfterClose()
}

// ResourceLogger is the minimal structured-logging contract Resource
// needs. observe.Logger does not satisfy it directly (its methods take a
// context and typed fields); the broker package adapts one to the other.
type ResourceLogger interface {
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// ShutdownListener is notified when the resource it was registered on
// closes.
type ShutdownListener func(err error)

// ListenerHandle identifies a previously registered ShutdownListener so it
// can be removed later; Go funcs aren't comparable, so identity is by
// handle rather than by value.
type ListenerHandle int

// InvokeOptions customizes a single Invoke call. The zero value is the
// normal, top-level caller path.
type InvokeOptions struct {
	// Stats, if non-nil, means this call is itself running inside a
	// recovery pass (the supervisor recovering a sibling resource), so
	// Invoke must not block on a gate the supervisor itself holds closed.
	Stats *Stats

	// Recoverable reports whether this resource's own recovery should
	// absorb a transport-shutdown failure. A bare delegate with no
	// resilience wrapper around it sets this false.
	Recoverable bool

	// LogFailures enables a warning log line per failed attempt.
	LogFailures bool
}

// Resource is the Retryable Resource engine: it intercepts a caller
// operation, retries it per Policy, arbitrates with Gate while recovery is
// in flight, and drives topology recovery once a supervisor hands it a
// fresh channel. One Resource exists per wrapped connection or channel.
type Resource[C any] struct {
	policy          Policy
	capability      RecoveryCapability[C]
	classify        Classifier
	supervisorToken any
	logger          ResourceLogger

	closed      atomic.Bool
	Gate        *Gate
	retryWaiter *Waiter

	mu             sync.Mutex
	listeners      map[ListenerHandle]ShutdownListener
	nextListenerID ListenerHandle
}

// NewResource constructs a Resource governed by policy, delegating
// recovery decisions to capability and error classification to classify.
// supervisorToken must be the same value the owning supervisor passes to
// Gate.Close, so that recovery-internal invocations recognize their own
// closure and don't deadlock awaiting it.
func NewResource[C any](policy Policy, capability RecoveryCapability[C], classify Classifier, supervisorToken any, logger ResourceLogger) *Resource[C] {
	return &Resource[C]{
		policy:          policy,
		capability:      capability,
		classify:        classify,
		supervisorToken: supervisorToken,
		logger:          logger,
		Gate:            NewGate(),
		retryWaiter:     NewWaiter(),
		listeners:       make(map[ListenerHandle]ShutdownListener),
	}
}

// IsClosed reports whether Close has completed on this resource.
func (r *Resource[C]) IsClosed() bool {
	return r.closed.Load()
}

// Invoke runs op, retrying per Policy until it succeeds, the policy budget
// is spent, the resource closes, or the failure is classified as
// non-retryable. A plain retryable failure always surfaces as op's own
// error, unwrapped: bookkeeping failures inside Gate, Stats, or Waiter are
// swallowed so they never mask the caller's actual failure. The two
// terminal conditions the engine itself detects — op failing after the
// resource has already closed, and the retry budget running out — are
// surfaced as [ErrResourceClosed] and [ErrPolicyExceeded] respectively,
// each wrapping op's last error so errors.Unwrap still reaches it. A call
// woken from a gate wait by Close returns op's own error unwrapped.
func (r *Resource[C]) Invoke(ctx context.Context, op func(context.Context) (any, error), opts InvokeOptions) (any, error) {
	insideRecovery := opts.Stats != nil
	stats := opts.Stats
	if stats == nil {
		stats = NewStats(r.policy, time.Now())
	}

	var awaitOwner any
	if insideRecovery {
		awaitOwner = r.supervisorToken
	}

	for {
		attemptStart := time.Now()
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}

		class := r.classify(err)

		if class.Kind == KindTransportShutdown && (insideRecovery || !opts.Recoverable) {
			return nil, err
		}

		if r.closed.Load() {
			return nil, fmt.Errorf("%w: %w", ErrResourceClosed, err)
		}

		if !r.isRetryable(class) {
			return nil, err
		}

		if class.Kind == KindTransportShutdown || class.Kind == KindChannelShutdown {
			if r.awaitGate(ctx, awaitOwner, stats) {
				return nil, err
			}
		}

		r.safeIncrementAttempts(stats)
		if stats.IsPolicyExceeded() {
			return nil, fmt.Errorf("%w: %w", ErrPolicyExceeded, err)
		}

		if opts.LogFailures {
			r.logWarn("retry attempt failed", "attempts", stats.Attempts(), "kind", class.Kind, "error", err)
		}

		remaining := stats.GetWaitTime() - time.Since(attemptStart)
		if remaining > 0 {
			r.retryWaiter.Await(remaining, ctx.Done())
		}
	}
}

// awaitGate blocks until Gate opens, is interrupted, times out against the
// remaining policy budget, or ctx is cancelled. It reports whether the
// caller should abandon the attempt (anything other than a clean open).
func (r *Resource[C]) awaitGate(ctx context.Context, owner any, stats *Stats) (abandon bool) {
	defer func() { recover() }()

	var outcome GateOutcome
	if maxWait, bounded := stats.GetMaxWaitTime(); bounded {
		outcome = r.Gate.AwaitTimeout(owner, maxWait, ctx.Done())
	} else {
		outcome = r.Gate.Await(owner, ctx.Done())
	}
	return outcome != GateOpened
}

// safeIncrementAttempts swallows any panic from the bookkeeping path so it
// can never surface in place of the caller's real error.
func (r *Resource[C]) safeIncrementAttempts(stats *Stats) {
	defer func() { recover() }()
	stats.IncrementAttempts()
}

func (r *Resource[C]) isRetryable(class Classification) bool {
	if !r.policy.AllowsAttempts() {
		return false
	}
	switch class.Kind {
	case KindTransportShutdown, KindIO:
		return true
	case KindChannelShutdown:
		return class.Recoverable
	case KindAuthentication:
		return r.policy.RetryAuthenticationExceptions()
	default:
		return false
	}
}

// Close invokes closeDelegate exactly once, then marks the resource
// closed, runs AfterClose, and wakes every caller blocked in Gate or the
// retry waiter so they observe the closure and propagate. Subsequent calls
// are no-ops.
func (r *Resource[C]) Close(closeDelegate func() error) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := closeDelegate()
	r.capability.AfterClose()
	r.Gate.InterruptWaiters()
	r.retryWaiter.InterruptWaiters()
	return err
}

// AddShutdownListener registers l and returns a handle for later removal.
// Dispatch to any underlying delegate is suppressed — replaying listener
// registration across recovered transports is the engine's job, not the
// delegate's.
func (r *Resource[C]) AddShutdownListener(l ShutdownListener) ListenerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextListenerID++
	id := r.nextListenerID
	r.listeners[id] = l
	return id
}

// RemoveShutdownListener unregisters the listener identified by h, if any.
func (r *Resource[C]) RemoveShutdownListener(h ListenerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, h)
}

// NotifyShutdown dispatches err to every registered listener. Called by the
// owning connection or channel wrapper when the underlying transport
// raises a shutdown signal.
func (r *Resource[C]) NotifyShutdown(err error) {
	r.mu.Lock()
	listeners := make([]ShutdownListener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		l(err)
	}
}

func (r *Resource[C]) logWarn(msg string, kv ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, kv...)
}

// RecoverExchange re-invokes decl against ch. On failure it logs and, if
// the capability says to throw on recovery failure or the failure is
// itself a connection-level closure, returns the error so the supervisor
// restarts the whole recovery pass from the top. Otherwise it swallows the
// failure and recovery continues with the next declaration.
func (r *Resource[C]) RecoverExchange(ch C, name string, decl Declaration[C]) error {
	_, err := decl.Invoke(ch)
	return r.recoveryOutcome(err, "exchange recovery failed", "exchange", name)
}

// RecoverQueue re-invokes decl against ch and captures the server-assigned
// name. If the returned name differs from decl's current name, decl.SetName
// is called so subsequent bindings and consumers target the new name. The
// effective name (new name on success, old name on a swallowed failure) is
// returned alongside any escalating error.
func (r *Resource[C]) RecoverQueue(ch C, decl QueueDeclaration[C]) (string, error) {
	oldName := decl.CurrentName()
	newName, err := decl.Invoke(ch)
	if err != nil {
		if escalated := r.recoveryOutcome(err, "queue recovery failed", "queue", oldName); escalated != nil {
			return oldName, escalated
		}
		return oldName, nil
	}
	if newName == "" {
		newName = oldName
	}
	if newName != oldName {
		decl.SetName(newName)
	}
	return newName, nil
}

// RecoverExchangeBindings replays bindings (exchange-to-exchange) against
// ch via bind, in the iterator's order. Per-binding failure policy matches
// RecoverExchange.
func (r *Resource[C]) RecoverExchangeBindings(ch C, bindings BindingIterator, bind func(ch C, b Binding) error) error {
	return r.recoverBindings(ch, bindings, bind, "exchange binding recovery failed")
}

// RecoverQueueBindings replays bindings (queue-to-exchange) against ch via
// bind, symmetric to RecoverExchangeBindings.
func (r *Resource[C]) RecoverQueueBindings(ch C, bindings BindingIterator, bind func(ch C, b Binding) error) error {
	return r.recoverBindings(ch, bindings, bind, "queue binding recovery failed")
}

func (r *Resource[C]) recoverBindings(ch C, bindings BindingIterator, bind func(ch C, b Binding) error, failureMsg string) error {
	var escalating error
	bindings(func(b Binding) bool {
		err := bind(ch, b)
		if err == nil {
			return true
		}
		if escalated := r.recoveryOutcome(err, failureMsg, "source", b.Source, "destination", b.Destination); escalated != nil {
			escalating = escalated
			return false
		}
		return true
	})
	return escalating
}

// recoveryOutcome applies the shared recovery failure policy: log, then
// decide whether to escalate. A nil return means the failure was
// swallowed.
func (r *Resource[C]) recoveryOutcome(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	r.logWarn(msg, append(kv, "error", err)...)
	class := r.classify(err)
	if r.capability.ThrowOnRecoveryFailure() || class.ConnectionLevel {
		return err
	}
	return nil
}
