// Package breaker guards calls to the Services Australia endpoints with a
// circuit breaker, so a flapping gateway fails fast instead of hanging the
// desktop client on every submission.
package breaker

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies the circuit breaker in logs.
	Name string
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
}

// DefaultConfig returns defaults suitable for a single-user desktop client.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker wraps gobreaker for HTTP round trips.
type Breaker struct {
	cb  *gobreaker.CircuitBreaker
	log zerolog.Logger
}

// New creates a Breaker from cfg. State changes are logged at warn level.
func New(cfg Config, log zerolog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), log: log}
}

// Do executes fn through the breaker. A rejected call (breaker open) is
// returned as gobreaker.ErrOpenState; the caller classifies it as a
// transport failure. Only transport-level errors count as failures: any
// response, whatever its status code, is a success from the breaker's
// point of view.
func (b *Breaker) Do(fn func() (*http.Response, error)) (*http.Response, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}
