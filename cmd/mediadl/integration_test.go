// Integration test: needs a real yt-dlp and network access.
// Skip unless MEDIADL_INTEGRATION_URL is set: go test -v -run Integration ./cmd/mediadl
package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/config"
)

func TestIntegration_resolveTwice(t *testing.T) {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		_ = config.LoadEnvFile(p)
	}
	target := os.Getenv("MEDIADL_INTEGRATION_URL")
	if target == "" {
		t.Skip("no MEDIADL_INTEGRATION_URL (a short public YouTube/VK/Instagram link)")
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.DownloadDir = t.TempDir()
	cfg.JournalPath = ""

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := checkFetcher(ctx, cfg); err != nil {
		t.Skipf("fetcher not usable: %v", err)
	}

	st, err := buildStack(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	first, err := st.coordinator.Resolve(ctx, target, "integration")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Title == "" || first.SizeBytes == 0 {
		t.Errorf("artifact = %+v", first)
	}
	if _, err := os.Stat(first.LocalPath); err != nil {
		t.Errorf("local file: %v", err)
	}

	start := time.Now()
	second, err := st.coordinator.Resolve(ctx, target, "integration")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.LocalPath != first.LocalPath {
		t.Errorf("second resolve path %q, want cached %q", second.LocalPath, first.LocalPath)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("cached resolve took %v", d)
	}
}
