package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.FetchMode != FetchLocal || c.YtDlpBin != "yt-dlp" || c.ServiceURL != "http://localhost:8090" {
		t.Errorf("fetcher defaults = %+v", c)
	}
	if c.DownloadDir != "/tmp/downloads" || c.Addr != ":8080" || c.JournalPath != "" {
		t.Errorf("path defaults = %+v", c)
	}
	if c.CacheTTL != 24*time.Hour || c.EvictionInterval != time.Hour {
		t.Errorf("cache defaults ttl=%v interval=%v", c.CacheTTL, c.EvictionInterval)
	}
	if c.MetadataTimeout != 30*time.Second || c.DownloadTimeout != 5*time.Minute {
		t.Errorf("timeouts = %v / %v", c.MetadataTimeout, c.DownloadTimeout)
	}
	if c.HostConcurrency != 4 || c.HostRPS != 2 {
		t.Errorf("host limits = %d / %v", c.HostConcurrency, c.HostRPS)
	}
}

func TestLoad_env(t *testing.T) {
	os.Clearenv()
	t.Setenv("MEDIADL_FETCH_MODE", "HTTP")
	t.Setenv("MEDIADL_YTDLP_SERVICE_URL", "http://ytdlp:8090")
	t.Setenv("MEDIADL_CACHE_TTL", "2h")
	t.Setenv("MEDIADL_EVICTION_INTERVAL", "10m")
	t.Setenv("MEDIADL_HOST_CONCURRENCY", "8")
	t.Setenv("MEDIADL_HOST_RPS", "0.5")
	t.Setenv("MEDIADL_JOURNAL", "/var/lib/mediadl/journal.db")
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.FetchMode != FetchHTTP || c.ServiceURL != "http://ytdlp:8090" {
		t.Errorf("fetcher = %q %q", c.FetchMode, c.ServiceURL)
	}
	if c.CacheTTL != 2*time.Hour || c.EvictionInterval != 10*time.Minute {
		t.Errorf("ttl=%v interval=%v", c.CacheTTL, c.EvictionInterval)
	}
	if c.HostConcurrency != 8 || c.HostRPS != 0.5 {
		t.Errorf("host limits = %d / %v", c.HostConcurrency, c.HostRPS)
	}
	if c.JournalPath != "/var/lib/mediadl/journal.db" {
		t.Errorf("journal = %q", c.JournalPath)
	}
}

func TestLoad_invalidDurationsFallBack(t *testing.T) {
	os.Clearenv()
	t.Setenv("MEDIADL_CACHE_TTL", "forever")
	t.Setenv("MEDIADL_EVICTION_INTERVAL", "-5m")
	t.Setenv("MEDIADL_HOST_CONCURRENCY", "lots")
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.CacheTTL != 24*time.Hour || c.EvictionInterval != time.Hour || c.HostConcurrency != 4 {
		t.Errorf("got ttl=%v interval=%v conc=%d", c.CacheTTL, c.EvictionInterval, c.HostConcurrency)
	}
}

func TestLoadFile_yamlThenEnv(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "mediadl.yaml")
	yml := `fetch_mode: http
ytdlp_service_url: http://svc:8090
download_dir: /data/downloads
cache_ttl: 6h
eviction_interval: 0s
addr: ":9000"
log_format: json
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEDIADL_ADDR", ":9100")
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.FetchMode != FetchHTTP || c.ServiceURL != "http://svc:8090" || c.DownloadDir != "/data/downloads" {
		t.Errorf("yaml fetcher = %+v", c)
	}
	if c.CacheTTL != 6*time.Hour {
		t.Errorf("CacheTTL = %v", c.CacheTTL)
	}
	if c.EvictionInterval != time.Hour {
		t.Errorf("zero interval should fall back to default, got %v", c.EvictionInterval)
	}
	if c.Addr != ":9100" {
		t.Errorf("env should override yaml addr, got %q", c.Addr)
	}
	if c.LogFormat != "json" {
		t.Errorf("LogFormat = %q", c.LogFormat)
	}
}

func TestLoad_configEnvVar(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "c.yaml")
	os.WriteFile(path, []byte("download_dir: /srv/dl\n"), 0644)
	t.Setenv("MEDIADL_CONFIG", path)
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.DownloadDir != "/srv/dl" {
		t.Errorf("DownloadDir = %q", c.DownloadDir)
	}
}

func TestLoadFile_errors(t *testing.T) {
	os.Clearenv()
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing explicit file should fail")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("cache_ttl: [1, 2"), 0644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default ok", func(c *Config) {}, ""},
		{"unknown mode", func(c *Config) { c.FetchMode = "grpc" }, "fetch_mode"},
		{"http needs url", func(c *Config) { c.FetchMode = FetchHTTP; c.ServiceURL = "ftp://svc" }, "ytdlp_service_url"},
		{"local needs bin", func(c *Config) { c.YtDlpBin = "" }, "ytdlp_bin"},
		{"download dir", func(c *Config) { c.DownloadDir = "" }, "download_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
