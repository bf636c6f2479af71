package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapetech/mediadl/internal/safeurl"
)

// Fetch modes.
const (
	FetchLocal = "local" // run yt-dlp on this host
	FetchHTTP  = "http"  // call the yt-dlp HTTP service
)

// Config holds fetcher, cache and server settings.
// Sources in order: defaults, the YAML file named by MEDIADL_CONFIG, then MEDIADL_* env vars.
// Call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	// Fetcher
	FetchMode       string        `yaml:"fetch_mode"`        // local | http
	YtDlpBin        string        `yaml:"ytdlp_bin"`         // local mode
	ServiceURL      string        `yaml:"ytdlp_service_url"` // http mode, e.g. http://ytdlp:8090
	DownloadDir     string        `yaml:"download_dir"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// Per-host limits for the service client.
	HostConcurrency int     `yaml:"host_concurrency"`
	HostRPS         float64 `yaml:"host_rps"` // 0 = no pacing

	// Cache. Both are read once at startup.
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	EvictionInterval time.Duration `yaml:"eviction_interval"`

	// Server
	Addr        string `yaml:"addr"`
	JournalPath string `yaml:"journal"` // sqlite file; "" = disabled

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console | json
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		FetchMode:        FetchLocal,
		YtDlpBin:         "yt-dlp",
		ServiceURL:       "http://localhost:8090",
		DownloadDir:      "/tmp/downloads",
		MetadataTimeout:  30 * time.Second,
		DownloadTimeout:  5 * time.Minute,
		HostConcurrency:  4,
		HostRPS:          2,
		CacheTTL:         24 * time.Hour,
		EvictionInterval: time.Hour,
		Addr:             ":8080",
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Load reads MEDIADL_CONFIG (if set) and the environment.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("MEDIADL_CONFIG"))
}

// LoadFile reads the YAML file at path (skipped when path is empty), then applies
// environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	c.applyEnv()
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.FetchMode = getEnv("MEDIADL_FETCH_MODE", c.FetchMode)
	c.YtDlpBin = getEnv("MEDIADL_YTDLP_BIN", c.YtDlpBin)
	c.ServiceURL = getEnv("MEDIADL_YTDLP_SERVICE_URL", c.ServiceURL)
	c.DownloadDir = getEnv("MEDIADL_DOWNLOAD_DIR", c.DownloadDir)
	c.MetadataTimeout = getEnvDuration("MEDIADL_METADATA_TIMEOUT", c.MetadataTimeout)
	c.DownloadTimeout = getEnvDuration("MEDIADL_DOWNLOAD_TIMEOUT", c.DownloadTimeout)
	c.HostConcurrency = getEnvInt("MEDIADL_HOST_CONCURRENCY", c.HostConcurrency)
	c.HostRPS = getEnvFloat("MEDIADL_HOST_RPS", c.HostRPS)
	c.CacheTTL = getEnvDuration("MEDIADL_CACHE_TTL", c.CacheTTL)
	c.EvictionInterval = getEnvDuration("MEDIADL_EVICTION_INTERVAL", c.EvictionInterval)
	c.Addr = getEnv("MEDIADL_ADDR", c.Addr)
	c.JournalPath = getEnv("MEDIADL_JOURNAL", c.JournalPath)
	c.LogLevel = getEnv("MEDIADL_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("MEDIADL_LOG_FORMAT", c.LogFormat)
}

// normalize replaces non-positive durations and limits (from YAML or env) with defaults.
func (c *Config) normalize() {
	d := Default()
	c.FetchMode = strings.ToLower(strings.TrimSpace(c.FetchMode))
	for _, p := range []struct{ v, def *time.Duration }{
		{&c.MetadataTimeout, &d.MetadataTimeout},
		{&c.DownloadTimeout, &d.DownloadTimeout},
		{&c.CacheTTL, &d.CacheTTL},
		{&c.EvictionInterval, &d.EvictionInterval},
	} {
		if *p.v <= 0 {
			*p.v = *p.def
		}
	}
	if c.HostConcurrency < 1 {
		c.HostConcurrency = d.HostConcurrency
	}
	if c.HostRPS < 0 {
		c.HostRPS = 0
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.FetchMode {
	case FetchLocal:
		if c.YtDlpBin == "" {
			errs = append(errs, errors.New("ytdlp_bin is empty"))
		}
	case FetchHTTP:
		if !safeurl.IsHTTPOrHTTPS(c.ServiceURL) {
			errs = append(errs, fmt.Errorf("ytdlp_service_url %q is not an http(s) URL", c.ServiceURL))
		}
	default:
		errs = append(errs, fmt.Errorf("fetch_mode %q: want %s or %s", c.FetchMode, FetchLocal, FetchHTTP))
	}
	if c.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir is empty"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
