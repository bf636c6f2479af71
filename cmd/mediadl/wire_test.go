package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/config"
	"github.com/snapetech/mediadl/internal/coordinator"
	"github.com/snapetech/mediadl/internal/materializer"
)

func TestBuildFetcher_mode(t *testing.T) {
	cfg := config.Default()
	cfg.DownloadDir = t.TempDir()
	if _, ok := buildFetcher(cfg, zerolog.Nop()).(*materializer.YtDlp); !ok {
		t.Error("local mode should build a YtDlp fetcher")
	}
	cfg.FetchMode = config.FetchHTTP
	cfg.ServiceURL = "http://127.0.0.1:9"
	f, ok := buildFetcher(cfg, zerolog.Nop()).(*materializer.Service)
	if !ok {
		t.Fatal("http mode should build a Service fetcher")
	}
	if f.BaseURL != cfg.ServiceURL || f.Limiter == nil || f.Client == nil {
		t.Errorf("service fetcher = %+v", f)
	}
}

func TestBuildStack_journal(t *testing.T) {
	cfg := config.Default()
	cfg.DownloadDir = t.TempDir()
	st, err := buildStack(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if st.journal != nil {
		t.Error("no journal path should leave journal nil")
	}
	st.Close()

	cfg.JournalPath = filepath.Join(t.TempDir(), "j.db")
	st, err = buildStack(cfg, zerolog.Nop())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer st.Close()
	if st.journal == nil || st.coordinator == nil || st.metrics == nil {
		t.Errorf("stack = %+v", st)
	}
}

func TestExitCode(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", coordinator.ErrUnsupportedSource), 2},
		{coordinator.ErrContentUnavailable, 3},
		{coordinator.ErrAlreadyInProgress, 4},
		{coordinator.ErrFetchFailed, 1},
		{errors.New("other"), 1},
	} {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
