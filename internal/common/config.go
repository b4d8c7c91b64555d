package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	OCR      OCRConfig
	Classify ClassifyConfig
}

// StoreConfig holds ledger store configuration
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	WriteRetries    int
	WriteRetryDelay time.Duration
}

// OCRConfig holds odometer OCR configuration
type OCRConfig struct {
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	OdometerMin   int
	OdometerMax   int
}

// ClassifyConfig holds classifier configuration
type ClassifyConfig struct {
	RulesPath string // JSON rules file; empty -> built-in default table
}

// LoadConfig loads configuration from the environment. A local .env file is
// merged in first when present; real environment variables win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Store: StoreConfig{
			DSN:             getEnv("LEDGER_DSN", "file:shiftledger.db"),
			MaxConns:        getEnvAsInt32("LEDGER_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
			WriteRetries:    getEnvAsInt("LEDGER_WRITE_RETRIES", 3),
			WriteRetryDelay: getEnvAsDuration("LEDGER_WRITE_RETRY_DELAY", 150*time.Millisecond),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "por"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			OdometerMin:   getEnvAsInt("ODOMETER_MIN", 500),
			OdometerMax:   getEnvAsInt("ODOMETER_MAX", 500000),
		},
		Classify: ClassifyConfig{
			RulesPath: getEnv("CATEGORY_RULES_PATH", ""),
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
	if c.Store.DSN == "" {
		return NewAppError("CONFIG_ERROR", "LEDGER_DSN is required", ErrInvalidInput)
	}
	if c.Store.WriteRetries < 1 {
		return NewAppError("CONFIG_ERROR", "LEDGER_WRITE_RETRIES must be at least 1", ErrInvalidInput)
	}
	if c.OCR.OdometerMin < 0 || c.OCR.OdometerMax <= c.OCR.OdometerMin {
		return NewAppError("CONFIG_ERROR", "odometer plausibility range is inverted", ErrInvalidInput)
	}
	return nil
}
