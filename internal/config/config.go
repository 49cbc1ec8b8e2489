package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults mirror the values the scanner has always run with.
const (
	DefaultMarketAPIURL = "https://west.albion-online-data.com/api/v2/stats/prices/"
	DefaultTimeAPIURL   = "http://worldtimeapi.org/api/timezone/Etc/UTC"
	DefaultBlackMarket  = "Black Market"
	DefaultCity         = "Caerleon"
	DefaultChunkSize    = 250
)

// Config holds all configuration for the scanner
type Config struct {
	// Mode
	Debug bool

	// Albion Online Data API
	MarketAPIURL      string
	TimeAPIURL        string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	RequestBurst      int
	ChunkSize         int

	// Markets
	BlackMarket string
	City        string

	// Item universe
	ItemsFile string
	Tiers     []string

	// Arbitrage Settings
	MaxAgeBlackMarket float64 // minutes
	MaxAgeCity        float64 // minutes
	AgeOffset         time.Duration
	TaxRate           decimal.Decimal // e.g., 0.03 = 3% premium market tax
	MinProfit         decimal.Decimal // silver
	EnforceMinProfit  bool
	PollInterval      time.Duration

	// Circuit breaker
	MaxConsecutiveFailures int
	FailureCooldown        time.Duration

	// Reports
	FullTablePath     string
	FullTableXLSXPath string

	// Database (optional latest-snapshot mirror)
	DatabasePath string

	// Telegram (optional alerts)
	TelegramToken  string
	TelegramChatID int64
	AlertCooldown  time.Duration
	AlertMaxRows   int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Debug: getEnvBool("DEBUG", false),

		// Albion Online Data API
		MarketAPIURL:      getEnv("MARKET_API_URL", DefaultMarketAPIURL),
		TimeAPIURL:        getEnv("TIME_API_URL", DefaultTimeAPIURL),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		RequestsPerSecond: getEnvFloat("REQUESTS_PER_SECOND", 3),
		RequestBurst:      getEnvInt("REQUEST_BURST", 10),
		ChunkSize:         getEnvInt("CHUNK_SIZE", DefaultChunkSize),

		// Markets
		BlackMarket: getEnv("BLACK_MARKET_LOCATION", DefaultBlackMarket),
		City:        getEnv("CITY_LOCATION", DefaultCity),

		// Item universe
		ItemsFile: getEnv("ITEMS_FILE", "items.txt"),
		Tiers:     getEnvList("ITEM_TIERS", []string{"T6", "T7", "T8"}),

		// Arbitrage Settings
		MaxAgeBlackMarket: getEnvFloat("MAX_AGE_BLACK_MARKET", 100),
		MaxAgeCity:        getEnvFloat("MAX_AGE_CITY", 100),
		AgeOffset:         time.Duration(getEnvFloat("AGE_OFFSET_MINUTES", 300) * float64(time.Minute)),
		TaxRate:           getEnvDecimal("TAX_RATE", decimal.NewFromFloat(0.03)),
		MinProfit:         getEnvDecimal("MIN_PROFIT", decimal.NewFromInt(1000)),
		EnforceMinProfit:  getEnvBool("ENFORCE_MIN_PROFIT", false),
		PollInterval:      getEnvDuration("POLL_INTERVAL", 4*time.Second),

		// Circuit breaker
		MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", 5),
		FailureCooldown:        getEnvDuration("FAILURE_COOLDOWN", time.Minute),

		// Reports
		FullTablePath:     getEnv("FULL_TABLE_PATH", "full_table.txt"),
		FullTableXLSXPath: os.Getenv("FULL_TABLE_XLSX_PATH"),

		// Database
		DatabasePath: os.Getenv("DATABASE_PATH"),

		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AlertCooldown: getEnvDuration("ALERT_COOLDOWN", 10*time.Minute),
		AlertMaxRows:  getEnvInt("ALERT_MAX_ROWS", 10),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the scanner cannot run with
func (c *Config) Validate() error {
	if c.MarketAPIURL == "" {
		return fmt.Errorf("MARKET_API_URL is required")
	}
	if c.TimeAPIURL == "" {
		return fmt.Errorf("TIME_API_URL is required")
	}
	if c.BlackMarket == "" || c.City == "" {
		return fmt.Errorf("both market locations are required")
	}
	if c.BlackMarket == c.City {
		return fmt.Errorf("black market and city must differ, both are %q", c.City)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("REQUESTS_PER_SECOND must be positive, got %v", c.RequestsPerSecond)
	}
	if c.RequestBurst <= 0 {
		c.RequestBurst = 1
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("ITEM_TIERS must name at least one tier")
	}
	if c.MaxAgeBlackMarket <= 0 || c.MaxAgeCity <= 0 {
		return fmt.Errorf("max age thresholds must be positive")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("TAX_RATE must be within [0, 1), got %s", c.TaxRate)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}
	if c.FullTablePath == "" {
		return fmt.Errorf("FULL_TABLE_PATH is required")
	}
	return nil
}

// TelegramEnabled reports whether both bot credentials are present
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, e.g. ITEM_TIERS="T6,T7,T8"
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
