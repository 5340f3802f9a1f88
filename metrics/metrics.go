package metrics

import (
	"time"
)

// Collector receives the service's operational measurements.
type Collector interface {
	// HTTP surface
	RecordRequest(route, method string, status int, duration time.Duration)

	// Account store
	RecordCredit(amount float64, success bool)

	// Notification sender
	RecordNotification(kind string, success bool, duration time.Duration)
	RecordNotificationDropped(kind string)
	RecordQueueDepth(depth int)
	RecordCircuitState(name string, state CircuitState)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards every measurement.
type NoOpCollector struct{}

func (NoOpCollector) RecordRequest(route, method string, status int, duration time.Duration) {}
func (NoOpCollector) RecordCredit(amount float64, success bool) {}
func (NoOpCollector) RecordNotification(kind string, success bool, duration time.Duration) {}
func (NoOpCollector) RecordNotificationDropped(kind string) {}
func (NoOpCollector) RecordQueueDepth(depth int) {}
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
