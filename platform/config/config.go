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

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides the shared secret the messaging gateway signs tokens with.
type JWTConfig interface {
	GetGatewayJWTSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetWebhookRatePerMinute() float64
}

// RedisConfig provides the Redis connection used by the state store.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides asynq queue settings.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// LLMConfig provides settings for the extraction and reply models.
type LLMConfig interface {
	GetMoonshotAPIKey() string
	GetLLMModel() string
	GetLLMBaseURL() string
	IsLLMEnabled() bool
}

// WhatsAppConfig provides settings for the WhatsApp Cloud API sender.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppToken() string
	GetWhatsAppPhoneNumberID() string
	GetWhatsAppSendsPerSecond() float64
	GetDefaultRegion() string
}

// BookingConfig provides settings for the booking API client.
type BookingConfig interface {
	GetBookingAPIURL() string
	GetBookingAPIKey() string
}

// CatalogConfig provides settings for catalog search and tax lookups.
type CatalogConfig interface {
	DatabaseConfig
	GetVATRateCode() string
	GetTaxRateCacheTTL() time.Duration
}

// ConversationConfig provides the tuning knobs of the conversation engine.
type ConversationConfig interface {
	GetConversationTTL() time.Duration
	GetConversationHistoryLimit() int
	GetSearchTimeout() time.Duration
	GetAlternativeSearchTimeout() time.Duration
	GetSearchCandidateLimit() int
	GetMaxExactMatches() int
	GetMaxAlternatives() int
	GetPriceSimilarityTolerance() float64
	GetNightPickupTime() string
	GetCurrencySymbol() string
	GetVehicleCardTemplate() string
	GetPaymentLinkTemplate() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	WebhookRatePerMinute     float64
	DatabaseURL              string
	GatewayJWTSecret         string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	MoonshotAPIKey           string
	LLMModel                 string
	LLMBaseURL               string
	WhatsAppURL              string
	WhatsAppToken            string
	WhatsAppPhoneNumberID    string
	WhatsAppSendsPerSecond   float64
	DefaultRegion            string
	BookingAPIURL            string
	BookingAPIKey            string
	VATRateCode              string
	TaxRateCacheTTL          time.Duration
	ConversationTTL          time.Duration
	ConversationHistoryLimit int
	SearchTimeout            time.Duration
	AlternativeSearchTimeout time.Duration
	SearchCandidateLimit     int
	MaxExactMatches          int
	MaxAlternatives          int
	PriceSimilarityTolerance float64
	NightPickupTime          string
	CurrencySymbol           string
	VehicleCardTemplate      string
	PaymentLinkTemplate      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetGatewayJWTSecret() string { return c.GatewayJWTSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string              { return c.HTTPAddr }
func (c *Config) GetWebhookRatePerMinute() float64 { return c.WebhookRatePerMinute }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// LLMConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetLLMModel() string       { return c.LLMModel }
func (c *Config) GetLLMBaseURL() string     { return c.LLMBaseURL }
func (c *Config) IsLLMEnabled() bool        { return c.MoonshotAPIKey != "" }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string             { return c.WhatsAppURL }
func (c *Config) GetWhatsAppToken() string           { return c.WhatsAppToken }
func (c *Config) GetWhatsAppPhoneNumberID() string   { return c.WhatsAppPhoneNumberID }
func (c *Config) GetWhatsAppSendsPerSecond() float64 { return c.WhatsAppSendsPerSecond }
func (c *Config) GetDefaultRegion() string           { return c.DefaultRegion }

// BookingConfig implementation
func (c *Config) GetBookingAPIURL() string { return c.BookingAPIURL }
func (c *Config) GetBookingAPIKey() string { return c.BookingAPIKey }

// CatalogConfig implementation
func (c *Config) GetVATRateCode() string            { return c.VATRateCode }
func (c *Config) GetTaxRateCacheTTL() time.Duration { return c.TaxRateCacheTTL }

// ConversationConfig implementation
func (c *Config) GetConversationTTL() time.Duration          { return c.ConversationTTL }
func (c *Config) GetConversationHistoryLimit() int           { return c.ConversationHistoryLimit }
func (c *Config) GetSearchTimeout() time.Duration            { return c.SearchTimeout }
func (c *Config) GetAlternativeSearchTimeout() time.Duration { return c.AlternativeSearchTimeout }
func (c *Config) GetSearchCandidateLimit() int               { return c.SearchCandidateLimit }
func (c *Config) GetMaxExactMatches() int                    { return c.MaxExactMatches }
func (c *Config) GetMaxAlternatives() int                    { return c.MaxAlternatives }
func (c *Config) GetPriceSimilarityTolerance() float64       { return c.PriceSimilarityTolerance }
func (c *Config) GetNightPickupTime() string                 { return c.NightPickupTime }
func (c *Config) GetCurrencySymbol() string                  { return c.CurrencySymbol }
func (c *Config) GetVehicleCardTemplate() string             { return c.VehicleCardTemplate }
func (c *Config) GetPaymentLinkTemplate() string             { return c.PaymentLinkTemplate }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		WebhookRatePerMinute:     mustFloat(getEnv("WEBHOOK_RATE_PER_MINUTE", "120")),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		GatewayJWTSecret:         getEnv("GATEWAY_JWT_SECRET", ""),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "conversations"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MoonshotAPIKey:           getEnv("MOONSHOT_API_KEY", ""),
		LLMModel:                 getEnv("LLM_MODEL", "kimi-k2.5"),
		LLMBaseURL:               getEnv("LLM_BASE_URL", ""),
		WhatsAppURL:              getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v21.0"),
		WhatsAppToken:            getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneNumberID:    getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppSendsPerSecond:   mustFloat(getEnv("WHATSAPP_SENDS_PER_SECOND", "20")),
		DefaultRegion:            getEnv("DEFAULT_PHONE_REGION", "NG"),
		BookingAPIURL:            getEnv("BOOKING_API_URL", ""),
		BookingAPIKey:            getEnv("BOOKING_API_KEY", ""),
		VATRateCode:              getEnv("VAT_RATE_CODE", "standard"),
		TaxRateCacheTTL:          mustDuration(getEnv("TAX_RATE_CACHE_TTL", "10m")),
		ConversationTTL:          mustDuration(getEnv("CONVERSATION_TTL", "72h")),
		ConversationHistoryLimit: mustInt(getEnv("CONVERSATION_HISTORY_LIMIT", "30")),
		SearchTimeout:            mustDuration(getEnv("SEARCH_TIMEOUT", "8s")),
		AlternativeSearchTimeout: mustDuration(getEnv("ALTERNATIVE_SEARCH_TIMEOUT", "5s")),
		SearchCandidateLimit:     mustInt(getEnv("SEARCH_CANDIDATE_LIMIT", "20")),
		MaxExactMatches:          mustInt(getEnv("MAX_EXACT_MATCHES", "5")),
		MaxAlternatives:          mustInt(getEnv("MAX_ALTERNATIVES", "5")),
		PriceSimilarityTolerance: mustFloat(getEnv("PRICE_SIMILARITY_TOLERANCE", "0.15")),
		NightPickupTime:          getEnv("NIGHT_PICKUP_TIME", "19:00"),
		CurrencySymbol:           getEnv("CURRENCY_SYMBOL", "₦"),
		VehicleCardTemplate:      getEnv("TEMPLATE_VEHICLE_CARD", "vehicle_option_card"),
		PaymentLinkTemplate:      getEnv("TEMPLATE_PAYMENT_LINK", "booking_payment_link"),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.GatewayJWTSecret == "" {
		return nil, fmt.Errorf("GATEWAY_JWT_SECRET is required")
	}
	if cfg.ConversationHistoryLimit < 1 {
		return nil, fmt.Errorf("CONVERSATION_HISTORY_LIMIT must be positive")
	}
	if cfg.SearchTimeout <= 0 || cfg.AlternativeSearchTimeout <= 0 {
		return nil, fmt.Errorf("SEARCH_TIMEOUT and ALTERNATIVE_SEARCH_TIMEOUT must be positive durations")
	}
	if cfg.PriceSimilarityTolerance < 0 || cfg.PriceSimilarityTolerance > 1 {
		return nil, fmt.Errorf("PRICE_SIMILARITY_TOLERANCE must be between 0 and 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
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
