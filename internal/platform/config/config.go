package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, assembled once in main.
type Config struct {
	Server     Server
	Redis      RedisConfig
	Postgres   PostgresConfig
	Kafka      KafkaConfig
	OCR        OCRConfig
	Rectify    RectifyConfig
	Policy     PolicyConfig
	Credential CredentialConfig
	LogLevel   string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// InternalToken guards /internal routes; empty leaves them open.
	InternalToken string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxBodyBytes  int64
}

// RedisConfig configures the challenge store. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the credential store. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// KafkaConfig configures the audit sink. No brokers keeps audit in memory.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// OCRConfig configures the Tesseract worker pool.
type OCRConfig struct {
	Workers  int
	Language string
	Timeout  time.Duration
}

// RectifyConfig bounds concurrent rectification work.
type RectifyConfig struct {
	Slots   int
	Timeout time.Duration
}

// PolicyConfig holds the overridable decision constants.
type PolicyConfig struct {
	MinimumAge             int
	LowConfidenceThreshold float64
	TrustMode              string
	FaceMatchThreshold     float64
}

// CredentialConfig configures the issuance bridge.
type CredentialConfig struct {
	ChallengeTTL time.Duration
	TokenTTL     time.Duration
	RPID         string
	RPName       string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          getEnv("IDINTAKE_ADDR", ":8080"),
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			InternalToken: os.Getenv("INTERNAL_API_TOKEN"),
			ReadTimeout:   getDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:  getDuration("HTTP_WRITE_TIMEOUT", 3*time.Minute),
			MaxBodyBytes:  int64(getInt("HTTP_MAX_BODY_BYTES", 16<<20)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:             getEnv("KAFKA_AUDIT_TOPIC", "idintake.audit"),
			Partitions:        int32(getInt("KAFKA_AUDIT_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_AUDIT_REPLICATION", 1)),
		},
		OCR: OCRConfig{
			Workers:  getInt("OCR_WORKERS", 2),
			Language: getEnv("OCR_LANGUAGE", "eng"),
			Timeout:  getDuration("OCR_TIMEOUT", 60*time.Second),
		},
		Rectify: RectifyConfig{
			Slots:   getInt("RECTIFY_SLOTS", 3),
			Timeout: getDuration("RECTIFY_TIMEOUT", 30*time.Second),
		},
		Policy: PolicyConfig{
			MinimumAge:             getInt("POLICY_MINIMUM_AGE", 19),
			LowConfidenceThreshold: getFloat("POLICY_LOW_CONFIDENCE", 60),
			TrustMode:              getEnv("POLICY_TRUST_MODE", "lenient"),
			FaceMatchThreshold:     getFloat("POLICY_FACE_MATCH_THRESHOLD", 0.6),
		},
		Credential: CredentialConfig{
			ChallengeTTL: getDuration("CHALLENGE_TTL", 5*time.Minute),
			TokenTTL:     getDuration("VERIFICATION_TOKEN_TTL", 10*time.Minute),
			RPID:         getEnv("RP_ID", "localhost"),
			RPName:       getEnv("RP_NAME", "ID Intake"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("IDINTAKE_ADDR is required")
	}
	if c.Server.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	if c.OCR.Workers < 1 || c.OCR.Workers > 32 {
		return fmt.Errorf("OCR_WORKERS must be between 1 and 32, got %d", c.OCR.Workers)
	}
	if c.Rectify.Slots < 1 {
		return fmt.Errorf("RECTIFY_SLOTS must be positive, got %d", c.Rectify.Slots)
	}
	if c.Policy.MinimumAge < 0 {
		return fmt.Errorf("POLICY_MINIMUM_AGE must not be negative, got %d", c.Policy.MinimumAge)
	}
	switch c.Policy.TrustMode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("POLICY_TRUST_MODE must be strict or lenient, got %q", c.Policy.TrustMode)
	}
	if c.Credential.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
