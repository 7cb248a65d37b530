package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Budget   BudgetConfig
	LLM      LLMConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// BudgetConfig holds context-budget configuration for the pipeline.
type BudgetConfig struct {
	ContextWindow     int           // provider's hard input+output ceiling
	SinglePassCeiling int           // above this estimate the run goes to batch mode
	SafetyMargin      int           // subtracted wherever an estimate gates a call
	MaxBatchTokens    int           // per-batch input budget
	MinOutputTokens   int           // floor for computed max_output_tokens
	MaxOutputTokens   int           // ceiling for computed max_output_tokens
	BytesPerToken     int           // heuristic divisor for the size estimator
	InterCallDelay    time.Duration // pause between sequential batch calls
	ReviewThreshold   float64       // quality score below this flags review
	TemplatePath      string        // optional override for the section-template registry
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string // "openai" is the only named implementation today
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Budget: BudgetConfig{
			ContextWindow:     getEnvAsInt("CONTEXT_WINDOW_TOKENS", 200_000),
			SinglePassCeiling: getEnvAsInt("SINGLE_PASS_CEILING_TOKENS", 180_000),
			SafetyMargin:      getEnvAsInt("SAFETY_MARGIN_TOKENS", 2_000),
			MaxBatchTokens:    getEnvAsInt("MAX_BATCH_TOKENS", 180_000),
			MinOutputTokens:   getEnvAsInt("MIN_OUTPUT_TOKENS", 8_000),
			MaxOutputTokens:   getEnvAsInt("MAX_OUTPUT_TOKENS", 16_000),
			BytesPerToken:     getEnvAsInt("BYTES_PER_TOKEN", 4),
			InterCallDelay:    getEnvAsDuration("INTER_CALL_DELAY", 1*time.Second),
			ReviewThreshold:   getEnvAsFloat64("REVIEW_THRESHOLD", 60),
			TemplatePath:      getEnv("SECTION_TEMPLATE_PATH", ""),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return c.Budget.Validate()
}

// Validate checks that the budget numbers can produce a workable call plan.
func (b BudgetConfig) Validate() error {
	if b.ContextWindow <= 0 {
		return NewAppError("CONFIG_ERROR", "CONTEXT_WINDOW_TOKENS must be positive", ErrInvalidInput)
	}
	if b.SinglePassCeiling <= 0 || b.SinglePassCeiling > b.ContextWindow {
		return NewAppError("CONFIG_ERROR", "SINGLE_PASS_CEILING_TOKENS must be in (0, CONTEXT_WINDOW_TOKENS]", ErrInvalidInput)
	}
	if b.MaxBatchTokens <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_BATCH_TOKENS must be positive", ErrInvalidInput)
	}
	if b.MinOutputTokens <= 0 || b.MaxOutputTokens < b.MinOutputTokens {
		return NewAppError("CONFIG_ERROR", "need 0 < MIN_OUTPUT_TOKENS <= MAX_OUTPUT_TOKENS", ErrInvalidInput)
	}
	if b.BytesPerToken <= 0 {
		return NewAppError("CONFIG_ERROR", "BYTES_PER_TOKEN must be positive", ErrInvalidInput)
	}
	return nil
}
