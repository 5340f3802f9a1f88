package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config stores all configuration for the application.
// Values come from environment variables or a .env file in the working directory.
type Config struct {
	ServerPort        string  `mapstructure:"SERVER_PORT"`
	CORSAllowedOrigin string  `mapstructure:"CORS_ALLOWED_ORIGIN"`
	MaxLoadAmount     float64 `mapstructure:"MAX_LOAD_AMOUNT"`

	StoreDriver     string `mapstructure:"STORE_DRIVER"`
	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDatabase   string `mapstructure:"MONGO_DATABASE"`
	MongoCollection string `mapstructure:"MONGO_COLLECTION"`

	SMTPHost      string        `mapstructure:"SMTP_HOST"`
	SMTPPort      int           `mapstructure:"SMTP_PORT"`
	EmailUser     string        `mapstructure:"EMAIL_USER"`
	EmailPassword string        `mapstructure:"EMAIL_PASSWORD"`
	SMTPTimeout   time.Duration `mapstructure:"SMTP_TIMEOUT"`
	MailQueueSize int           `mapstructure:"MAIL_QUEUE_SIZE"`
	MailWorkers   int           `mapstructure:"MAIL_WORKERS"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	NotifyExchange string `mapstructure:"NOTIFY_EXCHANGE"`
	PushGatewayURL string `mapstructure:"PUSHGATEWAY_URL"`

	SecretKey     string        `mapstructure:"SECRET_KEY"`
	ResetTokenTTL time.Duration `mapstructure:"RESET_TOKEN_TTL"`
	ResetURLBase  string        `mapstructure:"RESET_URL_BASE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":         "5001",
	"CORS_ALLOWED_ORIGIN": "*",
	"MAX_LOAD_AMOUNT":     100000.0,
	"STORE_DRIVER":        StoreMongo,
	"MONGO_URI":           "",
	"MONGO_DATABASE":      "ecbarko",
	"MONGO_COLLECTION":    "users",
	"SMTP_HOST":           "smtp.gmail.com",
	"SMTP_PORT":           587,
	"EMAIL_USER":          "",
	"EMAIL_PASSWORD":      "",
	"SMTP_TIMEOUT":        10 * time.Second,
	"MAIL_QUEUE_SIZE":     100,
	"MAIL_WORKERS":        2,
	"RABBITMQ_URL":        "",
	"NOTIFY_EXCHANGE":     "notifications",
	"PUSHGATEWAY_URL":     "",
	"SECRET_KEY":          "",
	"RESET_TOKEN_TTL":     30 * time.Minute,
	"RESET_URL_BASE":      "",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
}

// Load reads configuration from the directory's .env file, if any, and the environment.
// Environment variables win over the file.
func Load(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations the API server cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.MaxLoadAmount < 0 {
		return fmt.Errorf("MAX_LOAD_AMOUNT must not be negative")
	}
	if c.MailWorkers <= 0 || c.MailQueueSize <= 0 {
		return fmt.Errorf("MAIL_WORKERS and MAIL_QUEUE_SIZE must be positive")
	}

	return nil
}

// MailEnabled reports whether SMTP credentials were provided.
func (c Config) MailEnabled() bool {
	return c.EmailUser != "" && c.EmailPassword != ""
}

// ValidateMail rejects configurations the mail sender cannot run with.
func (c Config) ValidateMail() error {
	if !c.MailEnabled() {
		return fmt.Errorf("EMAIL_USER and EMAIL_PASSWORD must be set")
	}
	if c.SMTPHost == "" || c.SMTPPort <= 0 {
		return fmt.Errorf("SMTP_HOST and SMTP_PORT must be set")
	}
	if c.SMTPTimeout <= 0 {
		return fmt.Errorf("SMTP_TIMEOUT must be positive")
	}
	if c.MailWorkers <= 0 || c.MailQueueSize <= 0 {
		return fmt.Errorf("MAIL_WORKERS and MAIL_QUEUE_SIZE must be positive")
	}
	return nil
}
