package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HandlerConfig configures the HTTP health endpoints.
type HandlerConfig struct {
	// Timeout bounds each probe's call into the aggregator.
	// Default: 5 seconds
	Timeout time.Duration

	// CacheTTL, when positive, reuses the last aggregate result for
	// readiness/detailed probes that land within this window of each
	// other instead of re-running every checker. A Kubernetes readiness
	// probe firing every second shouldn't re-dial a broker connection
	// check that itself takes hundreds of milliseconds; caching for a
	// couple of probe intervals keeps steady-state probing cheap.
	// Default: 0 (no caching, every request re-checks)
	CacheTTL time.Duration
}

func (c HandlerConfig) withDefaults(defaultTimeout time.Duration) HandlerConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	at      time.Time
	results map[string]Result
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{ttl: ttl}
}

func (c *resultCache) get(ctx context.Context, agg *Aggregator) map[string]Result {
	if c.ttl <= 0 {
		return agg.CheckAll(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.results != nil && time.Since(c.at) < c.ttl {
		return c.results
	}

	c.results = agg.CheckAll(ctx)
	c.at = time.Now()
	return c.results
}

func httpStatusFor(status Status) int {
	if status.Passable() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes. This runs
// all health checks in the aggregator, subject to config.CacheTTL.
func ReadinessHandler(agg *Aggregator, config ...HandlerConfig) http.HandlerFunc {
	cfg := resolveHandlerConfig(config, 5*time.Second)
	cache := newResultCache(cfg.CacheTTL)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
		defer cancel()

		results := cache.get(ctx, agg)
		status := agg.OverallStatus(results)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(httpStatusFor(status))

		switch status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON response for the detailed health endpoint.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON response for a single health check.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// DetailedHandler returns an HTTP handler that provides detailed health
// information, subject to config.CacheTTL.
func DetailedHandler(agg *Aggregator, config ...HandlerConfig) http.HandlerFunc {
	cfg := resolveHandlerConfig(config, 10*time.Second)
	cache := newResultCache(cfg.CacheTTL)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
		defer cancel()

		results := cache.get(ctx, agg)
		status := agg.OverallStatus(results)

		response := HealthResponse{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}

		for name, result := range results {
			check := CheckResponse{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
				Details:  result.Details,
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			response.Checks[name] = check
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatusFor(status))

		_ = json.NewEncoder(w).Encode(response)
	}
}

// SingleCheckHandler returns an HTTP handler for checking a single component.
func SingleCheckHandler(agg *Aggregator, name string, config ...HandlerConfig) http.HandlerFunc {
	cfg := resolveHandlerConfig(config, 5*time.Second)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
		defer cancel()

		result, err := agg.Check(ctx, name)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}

		response := CheckResponse{
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			response.Error = result.Error.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatusFor(result.Status))

		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers registers all health check handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator, config ...HandlerConfig) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(agg, config...))
	mux.HandleFunc("/health", DetailedHandler(agg, config...))
}

func resolveHandlerConfig(config []HandlerConfig, defaultTimeout time.Duration) HandlerConfig {
	if len(config) > 0 {
		return config[0].withDefaults(defaultTimeout)
	}
	return HandlerConfig{}.withDefaults(defaultTimeout)
}
