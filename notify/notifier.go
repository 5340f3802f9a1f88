package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecbarko/ecbarko-db/logging"
	"github.com/ecbarko/ecbarko-db/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueFull      = errors.New("notification queue is full")
	ErrNotifierClosed = errors.New("notifier is closed")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrEmptyCode      = errors.New("otp or reset link is empty")
)

var validate = validator.New()

const (
	publishTimeout     = 5 * time.Second
	queueDepthInterval = 5 * time.Second
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	MessageID string
	Kind      Kind
	To        string
	Err       error
	Duration  time.Duration
	At        time.Time
}

// Delivered reports whether the relay accepted the message.
func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// OutcomeHandler observes delivery results. It runs on a worker goroutine
// and must not block for long.
type OutcomeHandler func(Outcome)

// Publisher forwards outcome events to a broker, see events.EventProducer.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// OutcomeEvent is the broker payload for an Outcome.
type OutcomeEvent struct {
	MessageID  string    `json:"message_id"`
	Kind       Kind      `json:"kind"`
	To         string    `json:"to"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Config sizes the worker pool.
type Config struct {
	// From is the sender address on every message.
	From string
	// QueueSize bounds pending messages (default: 100)
	QueueSize int
	// Workers is the number of concurrent deliveries (default: 2)
	Workers int
	// SendTimeout bounds one delivery attempt (default: 10s)
	SendTimeout time.Duration
}

// Option customises a Notifier.
type Option func(*Notifier)

func WithLogger(logger *logging.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

func WithMetrics(collector metrics.Collector) Option {
	return func(n *Notifier) { n.metrics = collector }
}

func WithOutcomeHandler(h OutcomeHandler) Option {
	return func(n *Notifier) { n.handlers = append(n.handlers, h) }
}

// WithPublisher sends every outcome to exchange as notification.sent or
// notification.failed.
func WithPublisher(p Publisher, exchange string) Option {
	return func(n *Notifier) {
		n.publisher = p
		n.exchange = exchange
	}
}

// Notifier sends OTP and reset emails in the background. Callers get a
// message ID back immediately; delivery failures surface only as Outcomes.
type Notifier struct {
	mailer    Mailer
	config    Config
	queue     chan Message
	logger    *logging.Logger
	metrics   metrics.Collector
	handlers  []OutcomeHandler
	publisher Publisher
	exchange  string

	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sent    int64
	failed  int64
	dropped int64
}

// Stats counts outcomes since start.
type Stats struct {
	QueueDepth int
	Sent       int64
	Failed     int64
	Dropped    int64
}

// New starts the worker pool. The Notifier must be closed with Close.
func New(mailer Mailer, config Config, opts ...Option) *Notifier {
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		mailer:  mailer,
		config:  config,
		queue:   make(chan Message, config.QueueSize),
		logger:  logging.L(),
		metrics: metrics.NoOpCollector{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.Named("notify")

	for i := 0; i < config.Workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	go n.reportQueueDepth()

	return n
}

// SendOTPEmail queues the one-time passcode email for address.
func (n *Notifier) SendOTPEmail(ctx context.Context, address, otp string) (string, error) {
	if otp == "" {
		return "", ErrEmptyCode
	}
	return n.enqueue(ctx, otpMessage(n.config.From, address, otp))
}

// SendResetEmail queues the reset link email for address.
func (n *Notifier) SendResetEmail(ctx context.Context, address, resetLink string) (string, error) {
	if resetLink == "" {
		return "", ErrEmptyCode
	}
	return n.enqueue(ctx, resetMessage(n.config.From, address, resetLink))
}

func (n *Notifier) enqueue(ctx context.Context, msg Message) (string, error) {
	if err := validate.Var(msg.To, "required,email"); err != nil {
		return "", ErrInvalidAddress
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return "", ErrNotifierClosed
	}

	msg.ID = uuid.NewString()
	select {
	case n.queue <- msg:
		return msg.ID, nil
	default:
		atomic.AddInt64(&n.dropped, 1)
		n.metrics.RecordNotificationDropped(string(msg.Kind))
		n.logger.Warn("email dropped, queue full",
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
		)
		return "", ErrQueueFull
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()

	for {
		select {
		case msg := <-n.queue:
			n.deliver(msg)
		case <-n.ctx.Done():
			for {
				select {
				case msg := <-n.queue:
					n.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.config.SendTimeout)
	defer cancel()

	start := time.Now()
	err := n.mailer.Send(ctx, msg)

	n.report(Outcome{
		MessageID: msg.ID,
		Kind:      msg.Kind,
		To:        msg.To,
		Err:       err,
		Duration:  time.Since(start),
		At:        time.Now(),
	})
}

func (n *Notifier) report(o Outcome) {
	n.metrics.RecordNotification(string(o.Kind), o.Delivered(), o.Duration)

	log := n.logger.With(
		zap.String("message_id", o.MessageID),
		zap.String("kind", string(o.Kind)),
		zap.String("to", o.To),
		zap.Duration("duration", o.Duration),
	)
	status := "sent"
	if o.Delivered() {
		atomic.AddInt64(&n.sent, 1)
		log.Info("email sent")
	} else {
		status = "failed"
		atomic.AddInt64(&n.failed, 1)
		log.Error("email delivery failed", zap.Error(o.Err))
	}

	for _, h := range n.handlers {
		h(o)
	}

	if n.publisher == nil {
		return
	}

	event := OutcomeEvent{
		MessageID:  o.MessageID,
		Kind:       o.Kind,
		To:         o.To,
		Status:     status,
		DurationMs: o.Duration.Milliseconds(),
		OccurredAt: o.At.UTC(),
	}
	if o.Err != nil {
		event.Error = o.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.publisher.Publish(ctx, n.exchange, "notification."+status, event); err != nil {
		log.Warn("publish notification outcome failed", zap.Error(err))
	}
}

func (n *Notifier) reportQueueDepth() {
	ticker := time.NewTicker(queueDepthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.metrics.RecordQueueDepth(len(n.queue))
		case <-n.ctx.Done():
			n.metrics.RecordQueueDepth(0)
			return
		}
	}
}

// Close stops intake and waits for queued messages to be attempted or for
// ctx to expire, whichever comes first.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	n.cancel()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) Stats() Stats {
	return Stats{
		QueueDepth: len(n.queue),
		Sent:       atomic.LoadInt64(&n.sent),
		Failed:     atomic.LoadInt64(&n.failed),
		Dropped:    atomic.LoadInt64(&n.dropped),
	}
}
