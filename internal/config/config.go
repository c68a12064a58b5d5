package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Price source modes
const (
	PriceSourceStatic = "static"
	PriceSourceRedis  = "redis"
	PriceSourceBars   = "bars"
	PriceSourceChain  = "chain"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Portfolio PortfolioConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration. An empty topic disables the
// matching consumer or producer.
type KafkaConfig struct {
	Brokers        []string
	FillsTopic     string
	QuotesTopic    string
	SnapshotsTopic string
	GroupID        string
}

// RedisConfig holds the quote cache connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PortfolioConfig holds ledger settings
type PortfolioConfig struct {
	ID            string
	InitialCash   decimal.Decimal
	PriceSource   string
	StaticQuotes  string
	QuoteMaxAge   time.Duration
	MarkInterval  time.Duration
	ReplayOnStart bool
}

// Load reads configuration from environment variables, after loading a
// .env file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cash, err := decimal.NewFromString(getEnv("PORTFOLIO_INITIAL_CASH", "100000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORTFOLIO_INITIAL_CASH: %w", err)
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	maxAge, err := getEnvDuration("QUOTE_MAX_AGE", 0)
	if err != nil {
		return nil, err
	}
	markInterval, err := getEnvDuration("MARK_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	replay, err := getEnvBool("REPLAY_ON_START", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "portfolio_ledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			FillsTopic:     getEnv("KAFKA_FILLS_TOPIC", "fills"),
			QuotesTopic:    getEnv("KAFKA_QUOTES_TOPIC", ""),
			SnapshotsTopic: getEnv("KAFKA_SNAPSHOTS_TOPIC", "portfolio-snapshots"),
			GroupID:        getEnv("KAFKA_GROUP_ID", "portfolio-ledger"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Portfolio: PortfolioConfig{
			ID:            getEnv("PORTFOLIO_ID", "default"),
			InitialCash:   cash,
			PriceSource:   strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceChain)),
			StaticQuotes:  getEnv("STATIC_QUOTES", ""),
			QuoteMaxAge:   maxAge,
			MarkInterval:  markInterval,
			ReplayOnStart: replay,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Portfolio.InitialCash.IsNegative() {
		return fmt.Errorf("PORTFOLIO_INITIAL_CASH must not be negative: %s", c.Portfolio.InitialCash)
	}
	switch c.Portfolio.PriceSource {
	case PriceSourceStatic, PriceSourceRedis, PriceSourceBars, PriceSourceChain:
	default:
		return fmt.Errorf("unknown PRICE_SOURCE %q", c.Portfolio.PriceSource)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	return nil
}

// UsesRedis reports whether the configured price source reads the quote cache
func (p *PortfolioConfig) UsesRedis() bool {
	return p.PriceSource == PriceSourceRedis || p.PriceSource == PriceSourceChain
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
