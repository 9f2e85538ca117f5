package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig tunes the breaker wrapped around a downstream
// dependency such as the catalog service.
type CircuitBreakerConfig struct {
	// Name identifies the dependency in metrics and logs.
	Name string

	// MaxRequests caps probe requests while half-open. Zero allows one.
	MaxRequests uint32

	// Interval resets the closed-state counters periodically. Zero keeps
	// counting until the state changes.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64

	// MinRequests is the sample size required before FailureRatio applies.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the settings used for synchronous
// lookups on the submission path. The short open timeout matters there: while
// the breaker is open, product existence checks fail fast and submissions are
// rejected, so recovery probes should start quickly.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  10,
	}
}

var (
	dependencyBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dependency_circuit_breaker_state",
			Help: "Circuit breaker state per downstream dependency (0=closed, 1=half-open, 2=open)",
		},
		[]string{"dependency"},
	)

	dependencyBreakerRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dependency_circuit_breaker_rejected_total",
			Help: "Requests rejected because the dependency's circuit breaker was open",
		},
		[]string{"dependency"},
	)
)

// ErrCircuitOpen is returned when the breaker rejects a request outright.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient wraps a Client so that a persistently failing
// dependency is cut off instead of holding request goroutines hostage.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

// NewCircuitBreakerClient wraps client with a breaker configured by cbCfg.
func NewCircuitBreakerClient(client *Client, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cbCfg.Name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cbCfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("dependency", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			dependencyBreakerState.WithLabelValues(name).Set(breakerStateGauge(to))
		},
	}

	dependencyBreakerState.WithLabelValues(cbCfg.Name).Set(breakerStateGauge(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
		name:    cbCfg.Name,
	}
}

func breakerStateGauge(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Do executes the request through the breaker. A 5xx response counts as a
// failure toward tripping; its body is drained into the error so the caller
// still sees what the dependency said.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if readErr != nil {
				body = nil
			}
			_ = resp.Body.Close()
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			dependencyBreakerRejected.WithLabelValues(c.name).Inc()
			c.logger.WarnContext(ctx, "circuit breaker open, rejecting request",
				slog.String("dependency", c.name),
				slog.String("path", req.URL.Path),
			)
		}
		return nil, err
	}
	return resp, nil
}

// Get performs a GET request through the breaker.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// State reports the breaker's current state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
