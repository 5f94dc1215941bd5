package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL        string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	CallbackURL        string
	AMQPURL            string // optional; empty means in-process queue
	Port               string
	MaxConcurrentCalls int
	ConfirmDigit       string
	RemoveOnConfirm    bool
	LogLevel           string
	Environment        string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	if cfg.TwilioAccountSID == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID is not set")
	}

	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	if cfg.TwilioAuthToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN is not set")
	}

	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	if cfg.TwilioFromNumber == "" {
		return nil, fmt.Errorf("TWILIO_FROM_NUMBER is not set")
	}

	cfg.CallbackURL = strings.TrimRight(os.Getenv("CALLBACK_URL"), "/")
	if cfg.CallbackURL == "" {
		return nil, fmt.Errorf("CALLBACK_URL is not set")
	}

	cfg.AMQPURL = os.Getenv("AMQP_URL")

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.MaxConcurrentCalls = 5 // protects the telephony gateway from burst overload
	if v := os.Getenv("MAX_CONCURRENT_CALLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_CONCURRENT_CALLS: %q", v)
		}
		cfg.MaxConcurrentCalls = n
	}

	cfg.ConfirmDigit = os.Getenv("CONFIRM_DIGIT")
	if cfg.ConfirmDigit == "" {
		cfg.ConfirmDigit = "1"
	}

	if v := os.Getenv("REMOVE_ON_CONFIRM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REMOVE_ON_CONFIRM: %q", v)
		}
		cfg.RemoveOnConfirm = b
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return cfg, nil
}
