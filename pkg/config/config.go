package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data sources
	NSE NSEConfig

	// Scan schedule
	Schedule ScheduleConfig

	// Gate tunables
	Gates GatesConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// NSEConfig holds NSE/BSE data source configuration
type NSEConfig struct {
	ArchivesBaseURL string // equity master and index constituent CSVs
	BSEAPIBaseURL   string // BSE scrip list API
	ChartBaseURL    string // daily OHLCV chart API
	QuoteBaseURL    string // per-instrument quote/profile pages (sector scraping)
	ConnectivityURL string // health probe target
	TestTicker      string // health probe instrument
	RequestsPerSec  float64
	CacheTTL        CacheTTLConfig
}

// CacheTTLConfig holds cache expiry per data kind
type CacheTTLConfig struct {
	Universe     time.Duration
	OHLCV        time.Duration
	Fundamentals time.Duration
}

// ScheduleConfig holds the daily scan schedule (IST)
type ScheduleConfig struct {
	Timezone     string
	IngestCron   string // daily price collection
	HealthCron   string // pre-flight check
	ScanCron     string // end-of-day scan
	WeeklyCron   string // watchlist digest
	UniverseCron string // universe refresh and profile enrichment
	ScanWorkers  int    // worker pool size for gate evaluation
}

// GatesConfig groups all gate threshold tunables
type GatesConfig struct {
	Gate1  Gate1Config
	Gate2  Gate2Config
	Gate2B Gate2BConfig
	Gate3  Gate3Config
	Gate4  Gate4Config
}

// Gate1Config holds spread-quality thresholds
type Gate1Config struct {
	MaxSpreadZScore float64 // sector-relative z-score cap (inclusive)
	MaxAbsSpread    float64 // absolute (High-Low)/Close cap; at or above fails
	RollingWindow   int     // sessions for the rolling spread average
}

// Gate2Config holds fundamental-quality thresholds
type Gate2Config struct {
	MinFScore         int     // Piotroski-style score floor (inclusive)
	MinCFOPAT         float64 // CFO / PAT floor (inclusive)
	MaxPromoterPledge float64 // promoter pledge % ceiling (inclusive)
}

// Gate2BConfig holds per-cap-tier institutional thresholds.
// The exact numbers are policy, not algorithm, so all of them are tunables.
type Gate2BConfig struct {
	Tiers map[string]TierThresholds
}

// TierThresholds holds the institutional floor for one cap tier
type TierThresholds struct {
	MinInstOwnershipPct float64
	MinFreeFloatPct     float64
}

// Gate3Config holds technical-trend thresholds
type Gate3Config struct {
	MinADX            float64
	MinMansfieldSlope float64
	MAShort           int
	MAMid             int
	MALong            int
	RSLookbackWeeks   int
}

// Gate4Config holds execution-timing thresholds
type Gate4Config struct {
	VolProrateFactor  float64 // dampening on the prorated volume expectation
	MinRRRatio        float64
	ATRPeriod         int
	ATRStopMultiplier float64
	VolAvgDays        int
	MarketOpenMinutes int // 9:15 -> 15:30 IST session
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Market data
		NSE: NSEConfig{
			ArchivesBaseURL: getEnv("NSE_ARCHIVES_URL", "https://nsearchives.nseindia.com"),
			BSEAPIBaseURL:   getEnv("BSE_API_URL", "https://api.bseindia.com"),
			ChartBaseURL:    getEnv("CHART_API_URL", "https://query1.finance.yahoo.com"),
			QuoteBaseURL:    getEnv("NSE_QUOTE_URL", "https://www.nseindia.com"),
			ConnectivityURL: getEnv("HEALTH_CONNECTIVITY_URL", "https://www.nseindia.com"),
			TestTicker:      getEnv("HEALTH_TEST_TICKER", "RELIANCE.NS"),
			RequestsPerSec:  getEnvAsFloat("NSE_REQUESTS_PER_SEC", 5.0),
			CacheTTL: CacheTTLConfig{
				Universe:     getEnvAsDuration("CACHE_UNIVERSE_TTL", "24h"),
				OHLCV:        getEnvAsDuration("CACHE_OHLCV_TTL", "4h"),
				Fundamentals: getEnvAsDuration("CACHE_FUNDAMENTALS_TTL", "24h"),
			},
		},

		// Schedule: prices 14:40, health check 14:55, scan 15:00,
		// weekly digest Friday 16:00, universe refresh Saturday (IST)
		Schedule: ScheduleConfig{
			Timezone:     getEnv("SCAN_TIMEZONE", "Asia/Kolkata"),
			IngestCron:   getEnv("INGEST_CRON", "0 40 14 * * MON-FRI"),
			HealthCron:   getEnv("HEALTH_CRON", "0 55 14 * * MON-FRI"),
			ScanCron:     getEnv("SCAN_CRON", "0 0 15 * * MON-FRI"),
			WeeklyCron:   getEnv("WEEKLY_CRON", "0 0 16 * * FRI"),
			UniverseCron: getEnv("UNIVERSE_CRON", "0 0 10 * * SAT"),
			ScanWorkers:  getEnvAsInt("SCAN_WORKERS", 8),
		},

		// Gates
		Gates: GatesConfig{
			Gate1: Gate1Config{
				MaxSpreadZScore: getEnvAsFloat("G1_MAX_SPREAD_Z", 2.0),
				MaxAbsSpread:    getEnvAsFloat("G1_MAX_ABS_SPREAD", 0.5),
				RollingWindow:   getEnvAsInt("G1_ROLLING_WINDOW", 20),
			},
			Gate2: Gate2Config{
				MinFScore:         getEnvAsInt("G2_MIN_F_SCORE", 4),
				MinCFOPAT:         getEnvAsFloat("G2_MIN_CFO_PAT", 0.5),
				MaxPromoterPledge: getEnvAsFloat("G2_MAX_PROMOTER_PLEDGE", 5.0),
			},
			Gate2B: Gate2BConfig{
				Tiers: map[string]TierThresholds{
					"LARGE": {
						MinInstOwnershipPct: getEnvAsFloat("G2B_LARGE_MIN_INST_PCT", 10.0),
						MinFreeFloatPct:     getEnvAsFloat("G2B_LARGE_MIN_FLOAT_PCT", 20.0),
					},
					"MID": {
						MinInstOwnershipPct: getEnvAsFloat("G2B_MID_MIN_INST_PCT", 15.0),
						MinFreeFloatPct:     getEnvAsFloat("G2B_MID_MIN_FLOAT_PCT", 25.0),
					},
					"SMALL": {
						MinInstOwnershipPct: getEnvAsFloat("G2B_SMALL_MIN_INST_PCT", 20.0),
						MinFreeFloatPct:     getEnvAsFloat("G2B_SMALL_MIN_FLOAT_PCT", 30.0),
					},
				},
			},
			Gate3: Gate3Config{
				MinADX:            getEnvAsFloat("G3_MIN_ADX", 10.0),
				MinMansfieldSlope: getEnvAsFloat("G3_MIN_MANSFIELD_SLOPE", 0.01),
				MAShort:           getEnvAsInt("G3_MA_SHORT", 50),
				MAMid:             getEnvAsInt("G3_MA_MID", 150),
				MALong:            getEnvAsInt("G3_MA_LONG", 200),
				RSLookbackWeeks:   getEnvAsInt("G3_RS_LOOKBACK_WEEKS", 52),
			},
			Gate4: Gate4Config{
				VolProrateFactor:  getEnvAsFloat("G4_VOL_PRORATE_FACTOR", 0.85),
				MinRRRatio:        getEnvAsFloat("G4_MIN_RR_RATIO", 2.0),
				ATRPeriod:         getEnvAsInt("G4_ATR_PERIOD", 14),
				ATRStopMultiplier: getEnvAsFloat("G4_ATR_STOP_MULTIPLIER", 2.0),
				VolAvgDays:        getEnvAsInt("G4_VOL_AVG_DAYS", 20),
				MarketOpenMinutes: getEnvAsInt("G4_MARKET_OPEN_MINUTES", 375),
			},
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Gates.Gate1.RollingWindow < 2 {
		return fmt.Errorf("G1_ROLLING_WINDOW must be at least 2")
	}
	if c.Gates.Gate2.MinFScore < 0 || c.Gates.Gate2.MinFScore > 9 {
		return fmt.Errorf("G2_MIN_F_SCORE must be within 0..9")
	}
	if c.Gates.Gate4.MarketOpenMinutes <= 0 {
		return fmt.Errorf("G4_MARKET_OPEN_MINUTES must be positive")
	}
	if c.Schedule.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
