package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maltedev/sku-price-scraper/internal/pacing"
)

type Config struct {
	Server  ServerConfig
	Input   InputConfig
	Output  OutputConfig
	Scraper ScraperConfig
	Parser  ParserConfig
	Browser BrowserConfig
	Publish PublishConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type InputConfig struct {
	Path            string
	BaseURLTemplate string
}

type OutputConfig struct {
	Path             string
	IncludeTimestamp bool
	ErrorFolder      string
}

type ScraperConfig struct {
	ConcurrencyCap     int
	NavigationTimeout  time.Duration
	SelectorTimeout    time.Duration
	RenderSettleMin    time.Duration
	RenderSettleMax    time.Duration
	PacingMode         pacing.Mode
	InterCompletionMin time.Duration
	InterCompletionMax time.Duration
}

type ParserConfig struct {
	PriceSelector        string
	GridItemSelector     string
	CartControlSelector  string
	CartControlAttr      string
	PriceElementSelector string
}

// GridEnabled reports whether the search-grid strategy should be used.
func (p ParserConfig) GridEnabled() bool {
	return p.GridItemSelector != ""
}

type BrowserConfig struct {
	Headless   bool
	UserAgent  string
	Locale     string
	TimezoneID string
}

type PublishConfig struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisStream    string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load seeds the environment from envFiles (missing files are skipped) and
// reads the configuration from it.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	mode, err := pacing.ParseMode(getEnvOrDefault("PACING_MODE", string(pacing.ModePerCompletion)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Input: InputConfig{
			Path:            getEnvOrDefault("INPUT_PATH", "products.csv"),
			BaseURLTemplate: os.Getenv("BASE_URL_TEMPLATE"),
		},
		Output: OutputConfig{
			Path:             getEnvOrDefault("OUTPUT_PATH", "prices_updated.csv"),
			IncludeTimestamp: getBoolOrDefault("OUTPUT_INCLUDE_TIMESTAMP", true),
			ErrorFolder:      getEnvOrDefault("ERROR_FOLDER", "screenshots"),
		},
		Scraper: ScraperConfig{
			ConcurrencyCap:     getIntOrDefault("CONCURRENCY_CAP", 8),
			NavigationTimeout:  getMillisOrDefault("NAVIGATION_TIMEOUT_MS", 60*time.Second),
			SelectorTimeout:    getMillisOrDefault("SELECTOR_TIMEOUT_MS", 30*time.Second),
			RenderSettleMin:    getDurationOrDefault("RENDER_SETTLE_DELAY_MIN", 2*time.Second),
			RenderSettleMax:    getDurationOrDefault("RENDER_SETTLE_DELAY_MAX", 4*time.Second),
			PacingMode:         mode,
			InterCompletionMin: getDurationOrDefault("INTER_COMPLETION_DELAY_MIN", 500*time.Millisecond),
			InterCompletionMax: getDurationOrDefault("INTER_COMPLETION_DELAY_MAX", 1500*time.Millisecond),
		},
		Parser: ParserConfig{
			PriceSelector:        getEnvOrDefault("PRICE_SELECTOR", "div.cat-price"),
			GridItemSelector:     os.Getenv("GRID_ITEM_SELECTOR"),
			CartControlSelector:  os.Getenv("CART_CONTROL_SELECTOR"),
			CartControlAttr:      getEnvOrDefault("CART_CONTROL_ATTR", "onclick"),
			PriceElementSelector: os.Getenv("PRICE_ELEMENT_SELECTOR"),
		},
		Browser: BrowserConfig{
			Headless:   getBoolOrDefault("BROWSER_HEADLESS", true),
			UserAgent:  os.Getenv("BROWSER_USER_AGENT"),
			Locale:     getEnvOrDefault("BROWSER_LOCALE", "en-CA"),
			TimezoneID: getEnvOrDefault("BROWSER_TIMEZONE", "America/Toronto"),
		},
		Publish: PublishConfig{
			DatabaseURL:    os.Getenv("DATABASE_URL"),
			RedisAddr:      os.Getenv("REDIS_ADDR"),
			RedisPassword:  os.Getenv("REDIS_PASSWORD"),
			RedisDB:        getIntOrDefault("REDIS_DB", 0),
			RedisStream:    getEnvOrDefault("REDIS_STREAM", "stream:price_updates"),
			AMQPURL:        os.Getenv("AMQP_URL"),
			AMQPExchange:   getEnvOrDefault("AMQP_EXCHANGE", "prices"),
			AMQPRoutingKey: getEnvOrDefault("AMQP_ROUTING_KEY", "price.updated"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("INPUT_PATH is required")
	}

	if c.Output.Path == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}

	if c.Scraper.ConcurrencyCap < 1 {
		return fmt.Errorf("CONCURRENCY_CAP must be at least 1")
	}

	if c.Scraper.NavigationTimeout <= 0 || c.Scraper.SelectorTimeout <= 0 {
		return fmt.Errorf("NAVIGATION_TIMEOUT_MS and SELECTOR_TIMEOUT_MS must be positive")
	}

	if c.Scraper.RenderSettleMin > c.Scraper.RenderSettleMax {
		return fmt.Errorf("RENDER_SETTLE_DELAY_MIN cannot be greater than RENDER_SETTLE_DELAY_MAX")
	}

	if c.Scraper.InterCompletionMin > c.Scraper.InterCompletionMax {
		return fmt.Errorf("INTER_COMPLETION_DELAY_MIN cannot be greater than INTER_COMPLETION_DELAY_MAX")
	}

	if c.Parser.GridEnabled() {
		if c.Parser.CartControlSelector == "" || c.Parser.PriceElementSelector == "" {
			return fmt.Errorf("CART_CONTROL_SELECTOR and PRICE_ELEMENT_SELECTOR are required with GRID_ITEM_SELECTOR")
		}
	} else if c.Parser.PriceSelector == "" {
		return fmt.Errorf("PRICE_SELECTOR is required")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
