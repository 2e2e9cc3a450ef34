package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration for the registry service.
type Server struct {
	Addr             string
	Environment      string
	JWTSigningKey    string
	TokenTTL         time.Duration
	DatabaseURL      string
	KafkaBrokers     string
	KafkaTopic       string
	BootstrapAdmin   string
	BootstrapIssuers []string
}

var TokenTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ATTESTA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if duration, err := time.ParseDuration(ttl); err == nil {
			TokenTTL = duration
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	bootstrapAdmin := os.Getenv("BOOTSTRAP_ADMIN")
	if bootstrapAdmin == "" {
		bootstrapAdmin = "0xregistry-admin"
	}

	var issuers []string
	if raw := os.Getenv("BOOTSTRAP_ISSUERS"); raw != "" {
		for _, acct := range strings.Split(raw, ",") {
			if acct = strings.TrimSpace(acct); acct != "" {
				issuers = append(issuers, acct)
			}
		}
	}

	kafkaTopic := os.Getenv("KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "attesta.registry.events"
	}

	return Server{
		Addr:             addr,
		Environment:      environment,
		JWTSigningKey:    jwtSigningKey,
		TokenTTL:         TokenTTL,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:       kafkaTopic,
		BootstrapAdmin:   bootstrapAdmin,
		BootstrapIssuers: issuers,
	}
}
