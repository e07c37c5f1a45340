package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string
	SweepPageSize int
	SnapshotTTL   time.Duration
}

// RedisConfig holds the snapshot-cache connection settings. An empty URL
// disables Redis and the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	addr := os.Getenv("SAFEGUARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "safeguard.credential-events"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis:         redisFromEnv(),
		KafkaBrokers:  brokers,
		KafkaTopic:    topic,
		JWTSigningKey: jwtSigningKey,
		SweepPageSize: intFromEnv("SWEEP_PAGE_SIZE", 200),
		SnapshotTTL:   durationFromEnv("SNAPSHOT_TTL", 5*time.Minute),
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     intFromEnv("REDIS_POOL_SIZE", 10),
		MinIdleConns: intFromEnv("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  durationFromEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationFromEnv("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationFromEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func intFromEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
