package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver     string
		DSN        string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		SQLitePath string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Metrics struct {
		Addr string
	}

	Kafka struct {
		Brokers      []string
		MatchTopic   string
		MessageTopic string
	}

	// Store tunes how the core talks to the record store.
	Store struct {
		Timeout        time.Duration
		RetryAttempts  int
		RetryBaseDelay time.Duration
	}

	Match struct {
		Greeting         string
		SweepInterval    time.Duration
		SweepBatch       int
		MaxMessageLength int
	}
}

func New() *Config {
	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "match_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.SQLitePath = getEnvDefault("SQLITE_PATH", "muzz.db")
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "muzz")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getIntDefault("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Metrics (empty disables the endpoint)
	cfg.Metrics.Addr = getEnvDefault("METRICS_ADDR", ":9090")

	// Kafka (no brokers → events are dropped)
	cfg.Kafka.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.Kafka.MatchTopic = getEnvDefault("KAFKA_MATCH_TOPIC", "match.created")
	cfg.Kafka.MessageTopic = getEnvDefault("KAFKA_MESSAGE_TOPIC", "message.sent")

	// Store
	cfg.Store.Timeout = getDurationDefault("STORE_TIMEOUT", 3*time.Second)
	cfg.Store.RetryAttempts = getIntDefault("STORE_RETRY_ATTEMPTS", 3)
	cfg.Store.RetryBaseDelay = getDurationDefault("STORE_RETRY_BASE_DELAY", 50*time.Millisecond)

	// Matching
	cfg.Match.Greeting = getEnvDefault("MATCH_GREETING", "Hi! We matched! 👋")
	cfg.Match.SweepInterval = getDurationDefault("SWEEP_INTERVAL", time.Minute)
	cfg.Match.SweepBatch = getIntDefault("SWEEP_BATCH", 100)
	cfg.Match.MaxMessageLength = getIntDefault("MESSAGE_MAX_LENGTH", 2000)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getIntDefault(k string, def int) int {
	if n, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return n
	}
	return def
}

func getDurationDefault(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnvDefault(k, "")); err == nil {
		return d
	}
	return def
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

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
