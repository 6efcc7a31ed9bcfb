// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

const (
	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsAMQP  = "amqp"
)

type Config struct {
	// HTTP server
	HTTPAddr        string
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int

	// Storage
	DatabaseURL string
	AutoMigrate bool
	DevSeed     bool

	// Domain
	Currency             string
	TaxBracketsFile      string
	PayrollTaxRate       decimal.Decimal
	PayrollDeductionRate decimal.Decimal

	// Events
	EventsBackend  string
	KafkaBrokers   []string
	KafkaTopic     string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Resilience
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	IntegrationTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// parse problems found by Load, reported by Validate
	problems []string
}

// Load reads the environment. Malformed values fall back to their defaults
// and are reported by Validate.
func Load() *Config {
	c := &Config{}
	c.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	c.ShutdownTimeout = c.getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	c.RateLimitRPS = c.getEnvFloat("RATE_LIMIT_RPS", 0)
	c.RateLimitBurst = c.getEnvInt("RATE_LIMIT_BURST", 20)

	c.DatabaseURL = databaseURL()
	c.AutoMigrate = getEnvBool("AUTO_MIGRATE", false)
	c.DevSeed = getEnvBool("DEV_SEED", false)

	c.Currency = strings.ToUpper(getEnv("LEDGER_CURRENCY", "USD"))
	c.TaxBracketsFile = getEnv("TAX_BRACKETS_FILE", "")
	c.PayrollTaxRate = c.getEnvDecimal("PAYROLL_TAX_RATE", "0.20")
	c.PayrollDeductionRate = c.getEnvDecimal("PAYROLL_DEDUCTION_RATE", "0.05")

	c.EventsBackend = strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone))
	c.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	c.KafkaTopic = getEnv("KAFKA_TOPIC", "ledger.events")
	c.AMQPURL = getEnv("AMQP_URL", "")
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", "ledger")
	c.AMQPRoutingKey = getEnv("AMQP_ROUTING_KEY", "ledger")

	c.BreakerMaxFailures = uint32(c.getEnvInt("BREAKER_MAX_FAILURES", 5))
	c.BreakerOpenTimeout = c.getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second)
	c.IntegrationTimeout = c.getEnvDuration("INTEGRATION_TIMEOUT", 5*time.Second)

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "json"))
	return c
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.problems...)

	if _, _, err := net.SplitHostPort(c.HTTPAddr); err != nil {
		problems = append(problems, fmt.Sprintf("invalid HTTP_ADDR %q: %v", c.HTTPAddr, err))
	}
	if _, err := money.NewAmountFromMinorUnits(c.Currency, 0); err != nil {
		problems = append(problems, fmt.Sprintf("invalid LEDGER_CURRENCY %q", c.Currency))
	}
	if c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			problems = append(problems, "DATABASE_URL must be a postgres:// URL")
		}
	}
	if c.AutoMigrate && c.DatabaseURL == "" {
		problems = append(problems, "AUTO_MIGRATE requires a database")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 1 {
		problems = append(problems, "RATE_LIMIT_RPS must be >= 0 and RATE_LIMIT_BURST >= 1")
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			problems = append(problems, "KAFKA_BROKERS is required when EVENTS_BACKEND=kafka")
		}
		if c.KafkaTopic == "" {
			problems = append(problems, "KAFKA_TOPIC cannot be empty")
		}
	case EventsAMQP:
		if u, err := url.Parse(c.AMQPURL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			problems = append(problems, "AMQP_URL must be an amqp:// or amqps:// URL when EVENTS_BACKEND=amqp")
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid EVENTS_BACKEND %q: must be one of none, kafka, amqp", c.EventsBackend))
	}

	if c.BreakerMaxFailures == 0 {
		problems = append(problems, "BREAKER_MAX_FAILURES must be >= 1")
	}
	if c.IntegrationTimeout <= 0 || c.BreakerOpenTimeout <= 0 || c.ShutdownTimeout <= 0 {
		problems = append(problems, "timeouts must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		problems = append(problems, fmt.Sprintf("invalid LOG_FORMAT %q: must be json or text", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the
// DB_* variables when DB_HOST is set.
func databaseURL() string {
	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	host := getEnv("DB_HOST", "")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("DB_USER", "postgres"), getEnv("DB_PASSWORD", "")),
		Host:     net.JoinHostPort(host, getEnv("DB_PORT", "5432")),
		Path:     "/" + getEnv("DB_NAME", "ledger"),
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func (c *Config) getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s %q: must be an integer", key, v))
		return fallback
	}
	return n
}

func (c *Config) getEnvFloat(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s %q: must be a number", key, v))
		return fallback
	}
	return f
}

func (c *Config) getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s %q: %v", key, v, err))
		return fallback
	}
	return d
}

func (c *Config) getEnvDecimal(key, fallback string) decimal.Decimal {
	v := getEnv(key, fallback)
	d, err := decimal.Parse(v)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s %q: must be a decimal", key, v))
		d, _ = decimal.Parse(fallback)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
