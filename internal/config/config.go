package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hoopstats configuration.
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	Crawl    CrawlConfig   `yaml:"crawl"`
	Browser  BrowserConfig `yaml:"browser"`
	Extract  ExtractConfig `yaml:"extract"`
	Log      LogConfig     `yaml:"log"`
	AtlasDSN string        `yaml:"atlas_dsn"`
	RedisURL string        `yaml:"redis_url"`
	RESTPort string        `yaml:"rest_port"`
}

// CrawlConfig controls the fetcher job.
type CrawlConfig struct {
	FirstSeason   int           `yaml:"first_season"`
	LastSeason    int           `yaml:"last_season"`
	MaxConcurrent int           `yaml:"max_concurrent"` // box-score fetches only
	Retries       int           `yaml:"retries"`
	SleepStep     time.Duration `yaml:"sleep_step"` // attempt i waits SleepStep*i
	JitterMin     time.Duration `yaml:"jitter_min"`
	JitterMax     time.Duration `yaml:"jitter_max"`
	MinInterval   time.Duration `yaml:"min_interval"`
	BaseURL       string        `yaml:"base_url"`
}

// BrowserConfig controls the headless Chrome instance.
type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	NoSandbox   bool          `yaml:"no_sandbox"`
	PageTimeout time.Duration `yaml:"page_timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// ExtractConfig controls the table extractor job.
type ExtractConfig struct {
	Output     string `yaml:"output"`
	Format     string `yaml:"format"` // csv or parquet
	UploadURI  string `yaml:"upload_uri"`
	WriteAtlas bool   `yaml:"write_atlas"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration the batch jobs were designed around.
func Default() Config {
	return Config{
		DataDir: "data",
		Crawl: CrawlConfig{
			FirstSeason:   2019,
			LastSeason:    2024,
			MaxConcurrent: 3,
			Retries:       6,
			SleepStep:     5 * time.Second,
			JitterMin:     2 * time.Second,
			JitterMax:     5 * time.Second,
			MinInterval:   2 * time.Second,
			BaseURL:       "https://www.basketball-reference.com",
		},
		Browser: BrowserConfig{
			Headless:    true,
			NoSandbox:   true,
			PageTimeout: 30 * time.Second,
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Extract: ExtractConfig{
			Output: "nba_games.csv",
			Format: "csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		RESTPort: "8080",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DataDir = getEnv("HOOPSTATS_DATA_DIR", cfg.DataDir)
	cfg.AtlasDSN = getEnv("ATLAS_DSN", cfg.AtlasDSN)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RESTPort = getEnv("REST_PORT", cfg.RESTPort)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Extract.Output = getEnv("HOOPSTATS_OUTPUT", cfg.Extract.Output)
	cfg.Extract.UploadURI = getEnv("HOOPSTATS_UPLOAD_URI", cfg.Extract.UploadURI)

	var err error
	if cfg.Crawl.FirstSeason, err = getEnvInt("HOOPSTATS_FIRST_SEASON", cfg.Crawl.FirstSeason); err != nil {
		return err
	}
	if cfg.Crawl.LastSeason, err = getEnvInt("HOOPSTATS_LAST_SEASON", cfg.Crawl.LastSeason); err != nil {
		return err
	}
	if cfg.Crawl.MaxConcurrent, err = getEnvInt("HOOPSTATS_MAX_CONCURRENT", cfg.Crawl.MaxConcurrent); err != nil {
		return err
	}
	if cfg.Crawl.SleepStep, err = getEnvDuration("HOOPSTATS_SLEEP_STEP", cfg.Crawl.SleepStep); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the jobs cannot run with.
func (c Config) Validate() error {
	if c.Crawl.FirstSeason > c.Crawl.LastSeason {
		return fmt.Errorf("first season %d is after last season %d", c.Crawl.FirstSeason, c.Crawl.LastSeason)
	}
	if c.Crawl.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.Crawl.MaxConcurrent)
	}
	if c.Crawl.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Crawl.Retries)
	}
	if c.Crawl.JitterMax < c.Crawl.JitterMin {
		return fmt.Errorf("jitter_max %v is below jitter_min %v", c.Crawl.JitterMax, c.Crawl.JitterMin)
	}
	switch strings.ToLower(c.Extract.Format) {
	case "csv", "parquet":
	default:
		return fmt.Errorf("invalid output format %q (must be csv or parquet)", c.Extract.Format)
	}
	return nil
}

// Seasons lists every season year in the configured range.
func (c CrawlConfig) Seasons() []int {
	seasons := make([]int, 0, c.LastSeason-c.FirstSeason+1)
	for s := c.FirstSeason; s <= c.LastSeason; s++ {
		seasons = append(seasons, s)
	}
	return seasons
}

// SchedulesDir is where monthly schedule pages are cached.
func (c Config) SchedulesDir() string {
	return filepath.Join(c.DataDir, "schedules")
}

// ScoresDir is where box-score pages are cached.
func (c Config) ScoresDir() string {
	return filepath.Join(c.DataDir, "scores")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
