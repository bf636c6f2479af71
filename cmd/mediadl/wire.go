package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/cache"
	"github.com/snapetech/mediadl/internal/config"
	"github.com/snapetech/mediadl/internal/coordinator"
	"github.com/snapetech/mediadl/internal/health"
	"github.com/snapetech/mediadl/internal/httpclient"
	"github.com/snapetech/mediadl/internal/journal"
	"github.com/snapetech/mediadl/internal/logging"
	"github.com/snapetech/mediadl/internal/materializer"
	"github.com/snapetech/mediadl/internal/metrics"
	"github.com/snapetech/mediadl/internal/provider"
	"github.com/snapetech/mediadl/internal/task"
)

// drainTimeout bounds how long Close waits for detached fetches before closing the journal.
const drainTimeout = 30 * time.Second

// stack is everything a resolve needs, built once from config.
type stack struct {
	log         zerolog.Logger
	results     *cache.Results
	tasks       *task.Registry
	metrics     *metrics.Metrics
	journal     *journal.Journal // nil when MEDIADL_JOURNAL is unset
	coordinator *coordinator.Coordinator
}

// Close lets fetches that outlived their callers finish (bounded by drainTimeout)
// so their journal rows land, then closes the journal.
func (s *stack) Close() {
	if s.coordinator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := s.coordinator.Wait(ctx); err != nil {
			s.log.Warn().Dur("waited", drainTimeout).Msg("fetches still running at shutdown; their journal rows are lost")
		}
		cancel()
	}
	if s.journal != nil {
		s.journal.Close()
	}
}

func buildFetcher(cfg *config.Config, log zerolog.Logger) materializer.Fetcher {
	log = logging.Component(log, "fetcher")
	if cfg.FetchMode == config.FetchHTTP {
		return &materializer.Service{
			BaseURL:         cfg.ServiceURL,
			MetadataTimeout: cfg.MetadataTimeout,
			DownloadTimeout: cfg.DownloadTimeout,
			Client:          httpclient.New(cfg.DownloadTimeout),
			Limiter:         httpclient.NewHostLimiter(cfg.HostConcurrency, cfg.HostRPS),
			Log:             log,
		}
	}
	return &materializer.YtDlp{
		Bin:             cfg.YtDlpBin,
		DownloadDir:     cfg.DownloadDir,
		MetadataTimeout: cfg.MetadataTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		Log:             log,
	}
}

func buildStack(cfg *config.Config, log zerolog.Logger) (*stack, error) {
	s := &stack{
		log:     log,
		results: cache.NewResults(cfg.CacheTTL),
		tasks:   task.NewRegistry(),
	}
	s.metrics = metrics.New(s.results.Len, s.tasks.InFlight)
	var rec coordinator.Recorder
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		s.journal = j
		rec = j
	}
	c, err := coordinator.New(coordinator.Config{
		Cache:      s.results,
		Tasks:      s.tasks,
		Classifier: provider.DefaultDomains,
		Fetcher:    buildFetcher(cfg, log),
		Metrics:    s.metrics,
		Journal:    rec,
		Log:        logging.Component(log, "coordinator"),
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.coordinator = c
	return s, nil
}

// checkFetcher verifies the configured fetcher is usable and describes it.
func checkFetcher(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.FetchMode == config.FetchHTTP {
		if err := health.CheckService(ctx, cfg.ServiceURL); err != nil {
			return "", err
		}
		r := health.ProbeService(ctx, cfg.ServiceURL, nil)
		if r.Status != health.StatusOK {
			return fmt.Sprintf("service %s (version probe: %s)", cfg.ServiceURL, r.Status), nil
		}
		return fmt.Sprintf("service %s yt-dlp %s (%dms)", cfg.ServiceURL, r.Version, r.LatencyMs), nil
	}
	v, err := health.CheckBinary(ctx, cfg.YtDlpBin)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", cfg.YtDlpBin, v), nil
}
