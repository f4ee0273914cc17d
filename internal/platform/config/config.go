package config

import (
	"os"
	"strconv"
	"time"
)

// Agents holds the base URLs of the three credential agents this service
// orchestrates. Each role runs its own agent instance.
type Agents struct {
	IssuerURL   string
	HolderURL   string
	VerifierURL string
}

// Polling captures the knobs of the poll-until-terminal loops. The agent is
// a polling-based collaborator, so every wait here is a bounded retry.
type Polling struct {
	ProofInterval   time.Duration // delay between proof exchange polls
	ProofTimeout    time.Duration // give up on a proof exchange after this long
	CredExAttempts  int           // lookups for a fresh credential exchange id
	CredExDelay     time.Duration // delay between credential exchange lookups
	ConnectAttempts int           // trust-ping bootstrap retries
	ConnectDelay    time.Duration // delay between bootstrap retries
}

// Server captures service level configuration.
type Server struct {
	Addr             string
	Environment      string
	DatabaseURL      string
	RedisAddr        string
	KafkaBrokers     string
	AdminSigningKey  string
	WalletWebhookURL string
	SMTPAddr         string
	SMTPFrom         string
	VerifierLabel    string
	SchemaID         string
	CredDefID        string
	OTPTTL           time.Duration
	CleanupInterval  time.Duration
	Agents           Agents
	Polling          Polling
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             envOr("CREDON_ADDR", ":8080"),
		Environment:      envOr("CREDON_ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		AdminSigningKey:  envOr("ADMIN_SIGNING_KEY", "dev-secret-key-change-in-production"),
		WalletWebhookURL: os.Getenv("WALLET_WEBHOOK_URL"),
		SMTPAddr:         os.Getenv("SMTP_ADDR"),
		SMTPFrom:         envOr("SMTP_FROM", "no-reply@credon.local"),
		VerifierLabel:    envOr("VERIFIER_LABEL", "verifier-main"),
		SchemaID:         os.Getenv("SCHEMA_ID"),
		CredDefID:        os.Getenv("CRED_DEF_ID"),
		OTPTTL:           durationOr("OTP_TTL", 5*time.Minute),
		CleanupInterval:  durationOr("CLEANUP_INTERVAL", 5*time.Minute),
		Agents: Agents{
			IssuerURL:   envOr("ISSUER_AGENT_URL", "http://localhost:11000"),
			HolderURL:   envOr("HOLDER_AGENT_URL", "http://localhost:11001"),
			VerifierURL: envOr("VERIFIER_AGENT_URL", "http://localhost:11002"),
		},
		Polling: Polling{
			ProofInterval:   durationOr("PROOF_POLL_INTERVAL", 3*time.Second),
			ProofTimeout:    durationOr("PROOF_POLL_TIMEOUT", 90*time.Second),
			CredExAttempts:  intOr("CREDEX_POLL_ATTEMPTS", 5),
			CredExDelay:     durationOr("CREDEX_POLL_DELAY", 2*time.Second),
			ConnectAttempts: intOr("CONNECT_ATTEMPTS", 3),
			ConnectDelay:    durationOr("CONNECT_DELAY", 2*time.Second),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
