// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lead store backends.
const (
	LeadStoreMemory   = "memory"
	LeadStoreRedis    = "redis"
	LeadStorePostgres = "postgres"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq job queue.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// JWTConfig provides JWT validation settings for admin middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for outbound SMTP delivery.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// MailboxConfig provides addressing used for the dealer-facing negotiation threads.
type MailboxConfig interface {
	GetInboundDomain() string
	GetAdminRecipients() []string
	GetDealerEmails() []string
}

// WebhookConfig provides settings for inbound provider webhooks.
type WebhookConfig interface {
	GetWebhookSecret() string
	GetWebhookRateLimit() float64
	GetWebhookRateBurst() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketInboundEmails() string
	IsMinIOEnabled() bool
}

// NegotiationConfig provides the tunable negotiation policy.
type NegotiationConfig interface {
	GetNegotiationPolicyFile() string
	GetCashTolerancePct() float64
	GetPaymentTolerance() float64
	GetDuplicateWindow() time.Duration
}

// LifecycleConfig provides settings for background lead housekeeping.
type LifecycleConfig interface {
	GetLeadStaleAfter() time.Duration
	GetLeadSweepInterval() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	LeadStore               string
	DatabaseURL             string
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	InboundDomain           string
	AdminRecipients         []string
	DealerEmails            []string
	WebhookSecret           string
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinioBucketInboundEmail string
	NegotiationPolicyFile   string
	CashTolerancePct        float64
	PaymentTolerance        float64
	DuplicateWindow         time.Duration
	PhoneRegion             string
	LeadStaleAfter          time.Duration
	LeadSweepInterval       time.Duration
	WebhookRateLimit        float64
	WebhookRateBurst        int
	RunWorker               bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool   { return c.RedisURL != "" }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// MailboxConfig implementation
func (c *Config) GetInboundDomain() string     { return c.InboundDomain }
func (c *Config) GetAdminRecipients() []string { return c.AdminRecipients }
func (c *Config) GetDealerEmails() []string    { return c.DealerEmails }

// WebhookConfig implementation
func (c *Config) GetWebhookSecret() string     { return c.WebhookSecret }
func (c *Config) GetWebhookRateLimit() float64 { return c.WebhookRateLimit }
func (c *Config) GetWebhookRateBurst() int     { return c.WebhookRateBurst }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketInboundEmails() string { return c.MinioBucketInboundEmail }
func (c *Config) IsMinIOEnabled() bool                { return c.MinIOEndpoint != "" }

// NegotiationConfig implementation
func (c *Config) GetNegotiationPolicyFile() string  { return c.NegotiationPolicyFile }
func (c *Config) GetCashTolerancePct() float64      { return c.CashTolerancePct }
func (c *Config) GetPaymentTolerance() float64      { return c.PaymentTolerance }
func (c *Config) GetDuplicateWindow() time.Duration { return c.DuplicateWindow }

// LifecycleConfig implementation
func (c *Config) GetLeadStaleAfter() time.Duration    { return c.LeadStaleAfter }
func (c *Config) GetLeadSweepInterval() time.Duration { return c.LeadSweepInterval }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function. Load uses os.LookupEnv;
// tests pass a map-backed lookup.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if val, ok := lookup(key); ok {
			return val
		}
		return fallback
	}

	corsOrigins := splitCSV(get("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(get("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := get("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(get("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                     get("APP_ENV", "development"),
		HTTPAddr:                get("HTTP_ADDR", ":4000"),
		LeadStore:               strings.ToLower(get("LEAD_STORE", LeadStoreMemory)),
		DatabaseURL:             get("DATABASE_URL", ""),
		RedisURL:                get("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(get("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          get("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(get("ASYNQ_CONCURRENCY", "10")),
		JWTAccessSecret:         get("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(get("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		EmailEnabled:            emailEnabled && smtpHost != "",
		SMTPHost:                smtpHost,
		SMTPPort:                mustInt(get("SMTP_PORT", "587")),
		SMTPUsername:            get("SMTP_USERNAME", ""),
		SMTPPassword:            get("SMTP_PASSWORD", ""),
		EmailFromName:           get("EMAIL_FROM_NAME", "LotShoppr"),
		EmailFromAddress:        get("EMAIL_FROM_ADDRESS", ""),
		InboundDomain:           get("INBOUND_DOMAIN", "deals.lotshoppr.com"),
		AdminRecipients:         splitCSV(get("ADMIN_RECIPIENTS", "")),
		DealerEmails:            splitCSV(get("DEALER_EMAILS", "")),
		WebhookSecret:           get("WEBHOOK_SECRET", ""),
		MinIOEndpoint:           get("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          get("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          get("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(get("MINIO_USE_SSL", "false"), "true"),
		MinioBucketInboundEmail: get("MINIO_BUCKET_INBOUND_EMAILS", "inbound-emails"),
		NegotiationPolicyFile:   get("NEGOTIATION_POLICY_FILE", ""),
		CashTolerancePct:        mustFloat(get("CASH_TOLERANCE_PCT", "5")),
		PaymentTolerance:        mustFloat(get("PAYMENT_TOLERANCE", "50")),
		DuplicateWindow:         mustDuration(get("DUPLICATE_WINDOW", "10m")),
		PhoneRegion:             get("PHONE_REGION", "US"),
		LeadStaleAfter:          mustDuration(get("LEAD_STALE_AFTER", "0")),
		LeadSweepInterval:       mustDuration(get("LEAD_SWEEP_INTERVAL", "1h")),
		WebhookRateLimit:        mustFloat(get("WEBHOOK_RATE_LIMIT", "5")),
		WebhookRateBurst:        mustInt(get("WEBHOOK_RATE_BURST", "20")),
		RunWorker:               strings.EqualFold(get("RUN_WORKER", "true"), "true"),
	}

	switch cfg.LeadStore {
	case LeadStoreMemory:
	case LeadStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when LEAD_STORE is redis")
		}
	case LeadStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when LEAD_STORE is postgres")
		}
	default:
		return nil, fmt.Errorf("unknown LEAD_STORE %q", cfg.LeadStore)
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.CashTolerancePct < 0 || cfg.PaymentTolerance < 0 {
		return nil, fmt.Errorf("negotiation tolerances must not be negative")
	}

	return cfg, nil
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
