package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ecbarko/ecbarko-db/config"
	"github.com/ecbarko/ecbarko-db/events"
	"github.com/ecbarko/ecbarko-db/logging"
	"github.com/ecbarko/ecbarko-db/metrics"
	"github.com/ecbarko/ecbarko-db/notify"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	metricsNamespace = "ecbarko"
	pushJob          = "ecbarko_mail"
	pushTimeout      = 5 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "ecbarko-mail",
		Short:        "Send ECBarko OTP and reset emails through the configured SMTP relay",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "give up waiting for the relay after this long")

	root.AddCommand(newOTPCmd(&timeout), newResetCmd(&timeout), newVerifyResetCmd())
	return root
}

type mailer struct {
	cfg      config.Config
	logger   *logging.Logger
	notifier *notify.Notifier
	relay    *notify.BreakerMailer
	registry *prometheus.Registry
	outcomes chan notify.Outcome
	producer *events.EventProducer
}

func loadConfig() (config.Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return config.Load(".")
}

func setup() (*mailer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateMail(); err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	logging.SetGlobal(logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(metricsNamespace)
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	relay := notify.NewBreakerMailer(notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPassword,
		Timeout:  cfg.SMTPTimeout,
	}), notify.BreakerConfig{}, collector, logger)

	m := &mailer{
		cfg:      cfg,
		logger:   logger,
		relay:    relay,
		registry: registry,
		outcomes: make(chan notify.Outcome, cfg.MailQueueSize),
	}

	opts := []notify.Option{
		notify.WithLogger(logger),
		notify.WithMetrics(collector),
		notify.WithOutcomeHandler(func(o notify.Outcome) { m.outcomes <- o }),
	}
	if cfg.RabbitMQURL != "" {
		producer, err := events.NewEventProducer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("outcome events disabled", zap.Error(err))
		} else {
			m.producer = producer
			opts = append(opts, notify.WithPublisher(producer, cfg.NotifyExchange))
		}
	}

	m.notifier = notify.New(relay, notify.Config{
		From:        cfg.EmailUser,
		QueueSize:   cfg.MailQueueSize,
		Workers:     cfg.MailWorkers,
		SendTimeout: cfg.SMTPTimeout,
	}, opts...)

	return m, nil
}

// finish runs after the notifier is closed. It logs the session totals and
// pushes the collected metrics when PUSHGATEWAY_URL is set.
func (m *mailer) finish() {
	stats := m.notifier.Stats()
	m.logger.Info("mail session finished",
		zap.Int64("sent", stats.Sent),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped),
		zap.String("breaker", m.relay.State()),
	)

	if m.cfg.PushGatewayURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := pushMetrics(ctx, m.cfg.PushGatewayURL, m.registry); err != nil {
			m.logger.Warn("push metrics failed", zap.String("gateway", m.cfg.PushGatewayURL), zap.Error(err))
		}
	}

	if m.producer != nil {
		m.producer.Close()
	}
	_ = m.logger.Sync()
}

func pushMetrics(ctx context.Context, gatewayURL string, g prometheus.Gatherer) error {
	return push.New(gatewayURL, pushJob).Gatherer(g).PushContext(ctx)
}

type sendFunc func(ctx context.Context, n *notify.Notifier) (string, error)

// deliver queues one email, drains the notifier and reports the outcome.
func deliver(ctx context.Context, n *notify.Notifier, outcomes <-chan notify.Outcome, send sendFunc, out io.Writer) error {
	id, err := send(ctx, n)
	if err != nil {
		_ = n.Close(ctx)
		return err
	}

	if err := n.Close(ctx); err != nil {
		return fmt.Errorf("waiting for delivery of %s: %w", id, err)
	}

	for {
		select {
		case o := <-outcomes:
			if o.MessageID != id {
				continue
			}
			if !o.Delivered() {
				return fmt.Errorf("delivery of %s to %s failed: %w", id, o.To, o.Err)
			}
			fmt.Fprintf(out, "sent %s email %s to %s in %s\n", o.Kind, id, o.To, o.Duration.Round(time.Millisecond))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
