package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-payroll/internal/batch"
	"go-payroll/internal/tax"
)

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type StorageConfig struct {
	Bucket          string
	Prefix          string
	CredentialsJSON string
}

// Config is read from the environment; cmd mains load .env first.
type Config struct {
	Port         string
	DB           DBConfig
	RedisAddr    string
	Kafka        KafkaConfig
	Storage      StorageConfig
	SigningKey   string
	Batch        batch.Config
	GenericRates tax.GenericRates
	OutboxPoll   time.Duration
	ExpirySweep  time.Duration
	MaxRetries   int
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port: env("PORT", "3000"),
		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     env("DB_PORT", "5432"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		RedisAddr: os.Getenv("REDIS_ADDR"),
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKER")),
			GroupID: env("KAFKA_GROUP_ID", "go-payroll-batch"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("GCS_BUCKET"),
			Prefix:          env("GCS_PREFIX", "payroll"),
			CredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
		},
		SigningKey:   os.Getenv("PAYSLIP_SIGNING_KEY"),
		Batch:        batch.DefaultConfig(),
		GenericRates: tax.DefaultGenericRates(),
		MaxRetries:   5,
	}

	var err error
	if cfg.Batch.Timeout, err = durationEnv("BATCH_TIMEOUT", cfg.Batch.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.Batch.RollbackWindow, err = durationEnv("BATCH_ROLLBACK_WINDOW", cfg.Batch.RollbackWindow); err != nil {
		return Config{}, err
	}
	if cfg.Batch.Workers, err = intEnv("BATCH_WORKERS", cfg.Batch.Workers); err != nil {
		return Config{}, err
	}
	if cfg.Batch.EntityWorkers, err = intEnv("BATCH_ENTITY_WORKERS", cfg.Batch.EntityWorkers); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPoll, err = durationEnv("OUTBOX_POLL_INTERVAL", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ExpirySweep, err = durationEnv("BATCH_EXPIRY_SWEEP", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.GenericRates.IncomeTax, err = rateEnv("FALLBACK_INCOME_TAX_PCT", cfg.GenericRates.IncomeTax); err != nil {
		return Config{}, err
	}
	if cfg.GenericRates.Social, err = rateEnv("FALLBACK_SOCIAL_PCT", cfg.GenericRates.Social); err != nil {
		return Config{}, err
	}
	if cfg.GenericRates.EmployerRate, err = rateEnv("FALLBACK_EMPLOYER_PCT", cfg.GenericRates.EmployerRate); err != nil {
		return Config{}, err
	}

	if cfg.SigningKey == "" {
		return Config{}, fmt.Errorf("PAYSLIP_SIGNING_KEY is required")
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// rateEnv reads a percentage such as "12.5" and returns it as a fraction.
func rateEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%s: must be between 0 and 100", key)
	}
	return d.Div(decimal.NewFromInt(100)), nil
}
