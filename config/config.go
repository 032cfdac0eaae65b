package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/rentalworker/pkg/errors"
)

// Fetch transports
const (
	TransportHTTP   = "http"
	TransportChrome = "chrome"
)

// Drop policies
const (
	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

// Config represents the application configuration
type Config struct {
	// Target site
	BaseURL     string
	ListingPath string
	Cities      []string

	// Crawler configuration
	PacingDelay      time.Duration
	FetchTimeout     time.Duration
	FetchRetries     int
	Transport        string
	ChromeBin        string
	MaxIndexPages    int
	DedupeURLs       bool
	DetailsSeparator string
	SelectorsFile    string
	CrawlInterval    time.Duration

	// Normalization
	DropPolicy string

	// Output
	OutputDir string

	// Logging
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogLevel      string

	// Memcache configuration
	MemcacheAddr string
	BlockTime    time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		BaseURL:              strings.TrimRight(getEnv("BASE_URL", "https://www.trulia.com"), "/"),
		ListingPath:          getEnv("LISTING_PATH", "/for_rent/"),
		Cities:               splitList(getEnv("CITIES", "Woburn,MA")),
		PacingDelay:          time.Duration(getEnvInt("PACING_DELAY_MS", 50)) * time.Millisecond,
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchRetries:         getEnvInt("FETCH_RETRIES", 0),
		Transport:            strings.ToLower(getEnv("FETCH_TRANSPORT", TransportHTTP)),
		ChromeBin:            getEnv("CHROME_BIN", ""),
		MaxIndexPages:        getEnvInt("MAX_INDEX_PAGES", 0),
		DedupeURLs:           getEnvBool("DEDUPE_URLS", false),
		DetailsSeparator:     getEnvRaw("DETAILS_SEPARATOR", ", "),
		SelectorsFile:        getEnv("SELECTORS_FILE", ""),
		CrawlInterval:        time.Duration(getEnvInt("CRAWL_INTERVAL_SECONDS", 0)) * time.Second,
		DropPolicy:           strings.ToLower(getEnv("DROP_POLICY", PolicyLenient)),
		OutputDir:            getEnv("OUTPUT_DIR", "daily_scrape"),
		LogFile:              getEnv("LOG_FILE", "logs/scraper.log"),
		LogMaxSizeMB:         getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:        getEnvInt("LOG_MAX_BACKUPS", 12),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		BlockTime:            time.Duration(getEnvInt("BLOCK_SECONDS", 500)) * time.Second,
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "rental_scrapes"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		Environment:          getEnv("RENTAL_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration and prepares the output root. Any error
// it returns is a configuration error and should abort the run.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return apperrors.NewConfiguration("BASE_URL must not be empty", nil)
	}
	if len(c.Cities) == 0 {
		return apperrors.NewConfiguration("CITIES must name at least one city", nil)
	}
	if c.Transport != TransportHTTP && c.Transport != TransportChrome {
		return apperrors.NewConfiguration(fmt.Sprintf("unknown FETCH_TRANSPORT %q", c.Transport), nil)
	}
	if c.DropPolicy != PolicyLenient && c.DropPolicy != PolicyStrict {
		return apperrors.NewConfiguration(fmt.Sprintf("unknown DROP_POLICY %q", c.DropPolicy), nil)
	}
	if c.PacingDelay < 0 || c.FetchTimeout <= 0 || c.CrawlInterval < 0 {
		return apperrors.NewConfiguration("durations must not be negative and FETCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.FetchRetries < 0 || c.MaxIndexPages < 0 {
		return apperrors.NewConfiguration("FETCH_RETRIES and MAX_INDEX_PAGES must not be negative", nil)
	}
	if c.SelectorsFile != "" {
		if _, err := os.Stat(c.SelectorsFile); err != nil {
			return apperrors.NewConfiguration("SELECTORS_FILE is not readable", err)
		}
	}
	return checkWritableDir(c.OutputDir)
}

// StartURL returns the first listing-index page for a city
func (c *Config) StartURL(city string) string {
	return c.BaseURL + c.ListingPath + city
}

// checkWritableDir creates dir if needed and checks it by creating a temp file
func checkWritableDir(dir string) error {
	if dir == "" {
		return apperrors.NewConfiguration("OUTPUT_DIR must not be empty", nil)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewConfiguration(fmt.Sprintf("cannot create output directory %s", dir), err)
	}
	tmp, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return apperrors.NewConfiguration(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvRaw is getEnv without trimming, for values where spaces matter
func getEnvRaw(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

// splitList splits a ';'-separated list. City ids contain commas
// ("Woburn,MA") so commas cannot be used as the separator.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
