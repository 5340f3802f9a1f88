package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecbarko/ecbarko-db/logging"
	"github.com/ecbarko/ecbarko-db/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrRelayUnavailable is reported while the breaker refuses to call the relay.
var ErrRelayUnavailable = errors.New("mail relay unavailable")

// BreakerConfig controls when the relay is considered down.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Default: 5
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing. Default: 30s
	OpenTimeout time.Duration
}

// BreakerMailer stops calling a relay that keeps failing.
type BreakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerMailer(next Mailer, cfg BreakerConfig, collector metrics.Collector, logger *logging.Logger) *BreakerMailer {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.L()
	}

	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			collector.RecordCircuitState(name, state)
		},
	}

	return &BreakerMailer{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerMailer) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}
	return err
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerMailer) State() string {
	return b.cb.State().String()
}
