// Package config loads the service configuration from environment
// variables, with defaults for everything except provider credentials.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environment names recognized by the service.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds everything the service reads from the environment.
type Config struct {
	// Port the HTTP server listens on
	Port string

	// Environment is the deployment environment flag; it selects the
	// M-Pesa base URL and shows up in the health response
	Environment string

	// AppScheme is the custom URL scheme verify redirects target
	AppScheme string

	// VerificationTTL is how long verification results stay cached
	VerificationTTL time.Duration

	Paystack PaystackConfig
	Mpesa    MpesaConfig
}

// PaystackConfig carries the Paystack credentials. The secret key doubles
// as the webhook HMAC secret.
type PaystackConfig struct {
	SecretKey string
}

// MpesaConfig carries the Daraja credentials. All fields are optional; the
// M-Pesa endpoints are mounted only when Configured reports true.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// Configured reports whether enough credentials are present to construct
// an M-Pesa client.
func (m MpesaConfig) Configured() bool {
	return m.ConsumerKey != "" && m.ConsumerSecret != "" && m.ShortCode != "" && m.Passkey != ""
}

// IsProduction reports whether the service runs against live provider
// hosts.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load reads configuration from the environment and validates it.
// Validation errors name the missing variable.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("APP_SCHEME", "dfirsttrader")
	v.SetDefault("VERIFICATION_TTL", "5m")

	cfg := &Config{
		Port:            v.GetString("PORT"),
		Environment:     v.GetString("APP_ENV"),
		AppScheme:       v.GetString("APP_SCHEME"),
		VerificationTTL: v.GetDuration("VERIFICATION_TTL"),
		Paystack: PaystackConfig{
			SecretKey: v.GetString("PAYSTACK_SECRET_KEY"),
		},
		Mpesa: MpesaConfig{
			ConsumerKey:    v.GetString("MPESA_CONSUMER_KEY"),
			ConsumerSecret: v.GetString("MPESA_CONSUMER_SECRET"),
			ShortCode:      v.GetString("MPESA_SHORTCODE"),
			Passkey:        v.GetString("MPESA_PASSKEY"),
			CallbackURL:    v.GetString("MPESA_CALLBACK_URL"),
		},
	}

	if cfg.Paystack.SecretKey == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is required")
	}
	if cfg.VerificationTTL <= 0 {
		return nil, fmt.Errorf("VERIFICATION_TTL must be a positive duration")
	}

	return cfg, nil
}
