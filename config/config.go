package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RabbitURL string `envconfig:"RABBITMQ_URL" required:"true"`
	// NOTIFIER selects the delivery sink: "rabbitmq" publishes, "log" only writes to the log.
	Notifier string `envconfig:"NOTIFIER" default:"rabbitmq"`

	// Empty REDIS_ADDR falls back to an in-process delivery lock.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	TimeZone string `envconfig:"TIME_ZONE" default:"Asia/Seoul"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	SchedulerEnabled bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	DumpingCron      string `envconfig:"DUMPING_CRON" default:"*/15 * * * *"`
	NoShowCron       string `envconfig:"NOSHOW_CRON" default:"*/30 * * * *"`
	ReminderCron     string `envconfig:"REMINDER_CRON" default:"5 * * * *"`
	DispatchCron     string `envconfig:"DISPATCH_CRON" default:"* * * * *"`
	SettlementCron   string `envconfig:"SETTLEMENT_CRON" default:"0 6 * * *"`

	DumpingRulesFile string `envconfig:"DUMPING_RULES_FILE"`

	NoShowGraceMinutes  int    `envconfig:"NOSHOW_GRACE_MINUTES" default:"30"`
	NoShowPenaltyBank   string `envconfig:"NOSHOW_PENALTY_BANK" default:"토스뱅크"`
	NoShowPenaltyNumber string `envconfig:"NOSHOW_PENALTY_ACCOUNT" default:"1234-5678-9012"`
	NoShowPenaltyHolder string `envconfig:"NOSHOW_PENALTY_HOLDER" default:"안심골프"`

	NotificationMaxAttempts int           `envconfig:"NOTIFICATION_MAX_ATTEMPTS" default:"3"`
	NotificationBatchSize   int           `envconfig:"NOTIFICATION_BATCH_SIZE" default:"100"`
	PaymentReminderAfter    time.Duration `envconfig:"PAYMENT_REMINDER_AFTER" default:"6h"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return nil, fmt.Errorf("load config: TIME_ZONE %q: %w", cfg.TimeZone, err)
	}
	return &cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Location is the course time zone. Load has already validated the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
