package health

import (
	"context"
	"fmt"
	"sync/atomic"
)

// BrokerConnection is the subset of *broker.Connection this package needs.
// Defined here rather than imported, so health keeps its existing
// zero-dependency stance and broker stays the one importing health, not
// the other way around.
type BrokerConnection interface {
	IsClosed() bool
	GateOpen() bool
}

// BrokerCheckerConfig configures the broker connection health checker.
type BrokerCheckerConfig struct {
	// Name overrides the checker's Name(). Default: "broker"
	Name string

	// DegradedAfter is the number of consecutive checks with the gate
	// closed for recovery at which the checker reports unhealthy rather
	// than degraded. Default: 3
	DegradedAfter int32
}

// BrokerChecker reports a Connection's health as seen from its Gate: open
// means traffic flows normally, closed means a supervisor is mid-recovery,
// and a connection that IsClosed has given up for good.
type BrokerChecker struct {
	name          string
	conn          BrokerConnection
	degradedAfter int32
	consecutive   atomic.Int32
}

// NewBrokerChecker wraps conn as a PingChecker.
func NewBrokerChecker(conn BrokerConnection, config ...BrokerCheckerConfig) *BrokerChecker {
	cfg := BrokerCheckerConfig{Name: "broker", DegradedAfter: 3}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Name == "" {
			cfg.Name = "broker"
		}
		if cfg.DegradedAfter <= 0 {
			cfg.DegradedAfter = 3
		}
	}
	return &BrokerChecker{name: cfg.Name, conn: conn, degradedAfter: cfg.DegradedAfter}
}

// Name returns the name of this checker.
func (b *BrokerChecker) Name() string { return b.name }

// Ping reports whether the connection currently accepts calls without
// waiting on gate recovery.
func (b *BrokerChecker) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if b.conn.IsClosed() {
		return ErrCheckFailed
	}
	if !b.conn.GateOpen() {
		return ErrCheckFailed
	}
	return nil
}

// Check performs the health check, tracking consecutive Ping failures so a
// brief in-flight recovery reads as degraded rather than immediately
// unhealthy.
func (b *BrokerChecker) Check(ctx context.Context) Result {
	if b.conn.IsClosed() {
		b.consecutive.Store(0)
		return Unhealthy("connection closed", ErrCheckFailed)
	}

	if err := b.Ping(ctx); err != nil {
		streak := b.consecutive.Add(1)
		details := map[string]any{"consecutive_failures": streak}
		if streak >= b.degradedAfter {
			return Unhealthy(
				fmt.Sprintf("gate closed for %d consecutive checks", streak), err,
			).WithDetails(details)
		}
		return Degraded("recovery in progress").WithDetails(details)
	}

	b.consecutive.Store(0)
	return Healthy("gate open")
}

var _ PingChecker = (*BrokerChecker)(nil)
