package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector with client_golang vectors.
type PrometheusCollector struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	credits      *prometheus.CounterVec
	creditAmount prometheus.Counter

	notifications       *prometheus.CounterVec
	notificationLatency *prometheus.HistogramVec
	droppedEmails       *prometheus.CounterVec
	queueDepth          prometheus.Gauge
	circuitState        *prometheus.GaugeVec
	circuitOpens        *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector. Call Register before serving /metrics.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests per route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency per route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		credits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_total",
				Help:      "Total number of load operations by result",
			},
			[]string{"result"},
		),
		creditAmount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credited_amount_total",
				Help:      "Sum of all successfully loaded amounts",
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of email delivery attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		notificationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_duration_seconds",
				Help:      "Email delivery latency by kind",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		droppedEmails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Emails rejected because the send queue was full",
			},
			[]string{"kind"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notification_queue_depth",
				Help:      "Current number of emails waiting for a worker",
			},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"name"},
		),
	}
}

// Register registers all metrics with the given registerer.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.requests,
		pc.requestLatency,
		pc.credits,
		pc.creditAmount,
		pc.notifications,
		pc.notificationLatency,
		pc.droppedEmails,
		pc.queueDepth,
		pc.circuitState,
		pc.circuitOpens,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (pc *PrometheusCollector) RecordRequest(route, method string, status int, duration time.Duration) {
	pc.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	pc.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordCredit(amount float64, success bool) {
	if !success {
		pc.credits.WithLabelValues("error").Inc()
		return
	}
	pc.credits.WithLabelValues("success").Inc()
	pc.creditAmount.Add(amount)
}

func (pc *PrometheusCollector) RecordNotification(kind string, success bool, duration time.Duration) {
	result := "sent"
	if !success {
		result = "failed"
	}
	pc.notifications.WithLabelValues(kind, result).Inc()
	pc.notificationLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordNotificationDropped(kind string) {
	pc.droppedEmails.WithLabelValues(kind).Inc()
}

func (pc *PrometheusCollector) RecordQueueDepth(depth int) {
	pc.queueDepth.Set(float64(depth))
}

func (pc *PrometheusCollector) RecordCircuitState(name string, state CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}
