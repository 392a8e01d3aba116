package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Account identity: separate accounts get separate database files
	AccountID string
	DataDir   string

	// Market data provider credentials
	APIKeyID     string
	APISecretKey string
	TradingURL   string
	DataURL      string
	StreamURL    string

	// Redis configuration (optional price cache)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// HTTP API
	APIPort int

	// Webhook notification targets (comma separated URLs)
	WebhookURLs []string

	Scan   ScanConfig
	Risk   RiskConfig
	Market MarketConfig
}

// ScanConfig holds momentum scan parameters and thresholds
type ScanConfig struct {
	MinPrice           float64 // drop penny-stock noise below this
	MinVolume          int64   // drop illiquid names below this
	MaxResults         int     // total movers returned, split between gainers and losers
	BatchSize          int     // symbols per upstream bar request
	IntervalMinutes    int     // scan/monitor cycle interval
	CacheRetentionDays int     // daily cache cleanup window
}

// RiskConfig holds circuit breaker limits as fractions (0.06 = 6%)
type RiskConfig struct {
	MonthlyLossLimit float64 // suspend trading for the month past this drawdown
	DailyLossLimit   float64 // block trading for the day past this intraday loss
	RiskPerTrade     float64 // default fraction of equity risked per position
	MaxPortfolioRisk float64 // cap on summed open-position risk
}

// MarketConfig holds session timing for the traded venue
type MarketConfig struct {
	Timezone      string
	OpenHour      int
	OpenMinute    int
	CloseHour     int
	CloseMinute   int
	EODExitHour   int // start of the end-of-day forced exit window
	EODExitMinute int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AccountID: getEnvOrDefault("ACCOUNT_ID", "default"),
		DataDir:   getEnvOrDefault("DATA_DIR", "data"),

		APIKeyID:     os.Getenv("BROKER_API_KEY_ID"),
		APISecretKey: os.Getenv("BROKER_API_SECRET_KEY"),
		TradingURL:   getEnvOrDefault("BROKER_TRADING_URL", "https://paper-api.alpaca.markets"),
		DataURL:      getEnvOrDefault("BROKER_DATA_URL", "https://data.alpaca.markets"),
		StreamURL:    getEnvOrDefault("BROKER_STREAM_URL", "wss://stream.data.alpaca.markets/v2/iex"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		APIPort: getEnvInt("API_PORT", 8080),

		WebhookURLs: splitList(os.Getenv("WEBHOOK_URLS")),

		Scan: ScanConfig{
			MinPrice:           getEnvFloat("SCAN_MIN_PRICE", 5.0),
			MinVolume:          int64(getEnvInt("SCAN_MIN_VOLUME", 1000000)),
			MaxResults:         getEnvInt("SCAN_MAX_RESULTS", 20),
			BatchSize:          getEnvInt("SCAN_BATCH_SIZE", 200),
			IntervalMinutes:    getEnvInt("SCAN_INTERVAL_MINUTES", 5),
			CacheRetentionDays: getEnvInt("CACHE_RETENTION_DAYS", 30),
		},

		Risk: RiskConfig{
			MonthlyLossLimit: getEnvFloat("RISK_MONTHLY_LOSS_LIMIT", 0.06),
			DailyLossLimit:   getEnvFloat("RISK_DAILY_LOSS_LIMIT", 0.03),
			RiskPerTrade:     getEnvFloat("RISK_PER_TRADE", 0.02),
			MaxPortfolioRisk: getEnvFloat("RISK_MAX_PORTFOLIO", 0.06),
		},

		Market: MarketConfig{
			Timezone:      getEnvOrDefault("MARKET_TIMEZONE", "America/New_York"),
			OpenHour:      getEnvInt("MARKET_OPEN_HOUR", 9),
			OpenMinute:    getEnvInt("MARKET_OPEN_MINUTE", 30),
			CloseHour:     getEnvInt("MARKET_CLOSE_HOUR", 16),
			CloseMinute:   getEnvInt("MARKET_CLOSE_MINUTE", 0),
			EODExitHour:   getEnvInt("MARKET_EOD_EXIT_HOUR", 15),
			EODExitMinute: getEnvInt("MARKET_EOD_EXIT_MINUTE", 45),
		},
	}
}

// splitList parses a comma separated env value into trimmed entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
