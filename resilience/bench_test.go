package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  100,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return nil })
	}
}

func BenchmarkCircuitBreaker_AllowRecord(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  100,
		ResetTimeout: time.Minute,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if cb.Allow() == nil {
			cb.Record(nil)
		}
	}
}

func BenchmarkCircuitBreaker_StateCheck(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  5,
		ResetTimeout: time.Minute,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.State()
	}
}

func BenchmarkCircuitBreaker_Metrics(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  5,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return nil })
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Metrics()
	}
}

func BenchmarkCircuitBreaker_Concurrent(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1000,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = cb.Execute(ctx, func(ctx context.Context) error { return nil })
		}
	})
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1000000, Burst: 1000000})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Allow()
	}
}

func BenchmarkRateLimiter_AllowN(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1000000, Burst: 1000000})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.AllowN(10)
	}
}

func BenchmarkRateLimiter_Tokens(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 10})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Tokens()
	}
}

func BenchmarkRateLimiter_Concurrent(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1000000, Burst: 1000000})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = rl.Allow()
		}
	})
}

func BenchmarkBulkhead_Execute(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1000})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bh.Execute(ctx, func(ctx context.Context) error { return nil })
	}
}

func BenchmarkBulkhead_AcquireRelease(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1000})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bh.Acquire(ctx)
		bh.Release()
	}
}

func BenchmarkBulkhead_Metrics(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 10})
	ctx := context.Background()
	_ = bh.Acquire(ctx)
	_ = bh.Acquire(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bh.Metrics()
	}
}

func BenchmarkBulkhead_Concurrent(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 100})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = bh.Execute(ctx, func(ctx context.Context) error { return nil })
		}
	})
}

func BenchmarkTimeout_Execute_Fast(b *testing.B) {
	timeout := NewTimeout(TimeoutConfig{Timeout: time.Second})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = timeout.Execute(ctx, func(ctx context.Context) error { return nil })
	}
}

func BenchmarkTimeout_Config(b *testing.B) {
	timeout := NewTimeout(TimeoutConfig{Timeout: time.Second})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = timeout.Config()
	}
}

func BenchmarkState_String(b *testing.B) {
	states := []State{StateClosed, StateOpen, StateHalfOpen}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = states[i%3].String()
	}
}

func BenchmarkErrorIs(b *testing.B) {
	err := ErrCircuitOpen

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = errors.Is(err, ErrCircuitOpen)
	}
}
