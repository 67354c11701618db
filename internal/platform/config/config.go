package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the engine.
type Config struct {
	Server     Server
	Postgres   Postgres
	Redis      RedisConfig
	Kafka      Kafka
	Dispatcher Dispatcher
	Identity   Identity
}

// Identity points at the roster file backing the in-process provider.
type Identity struct {
	RosterFile string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	ChainKey      string
}

// Postgres captures the system-of-record connection.
type Postgres struct {
	URL string
}

// RedisConfig captures the optional Redis connection used for dispatch dedupe.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit relay target. Empty brokers disable the relay.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Dispatcher tunes the notification worker pool.
type Dispatcher struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := getenv("CHRONA_ADDR", ":8080")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	chainKey := os.Getenv("CHRONA_CHAIN_KEY")
	if chainKey == "" {
		chainKey = "dev-chain-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Server: Server{
			Addr:          addr,
			JWTSigningKey: jwtSigningKey,
			ChainKey:      chainKey,
		},
		Postgres: Postgres{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: brokers,
			Topic:   getenv("KAFKA_AUDIT_TOPIC", "chrona.workflow-log"),
		},
		Dispatcher: Dispatcher{
			QueueSize:   getint("DISPATCH_QUEUE_SIZE", 1024),
			Workers:     getint("DISPATCH_WORKERS", 4),
			MaxAttempts: getint("DISPATCH_MAX_ATTEMPTS", 3),
			BaseBackoff: getduration("DISPATCH_BASE_BACKOFF", 250*time.Millisecond),
		},
		Identity: Identity{
			RosterFile: os.Getenv("CHRONA_ROSTER_FILE"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
