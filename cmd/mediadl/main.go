// Command mediadl resolves media URLs (YouTube, VK, Instagram) to local files through yt-dlp,
// with a result cache and at most one fetch in flight per URL.
//
//	run      Health check, start the cache eviction ticker, serve the HTTP API
//	resolve  Resolve one URL (or one playlist entry) and print the artifact as JSON
//	history  Print recent fetches from the journal (MEDIADL_JOURNAL)
//	probe    Check the configured fetcher; -server also checks a running mediadl
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/snapetech/mediadl/internal/config"
	"github.com/snapetech/mediadl/internal/coordinator"
	"github.com/snapetech/mediadl/internal/eviction"
	"github.com/snapetech/mediadl/internal/health"
	"github.com/snapetech/mediadl/internal/journal"
	"github.com/snapetech/mediadl/internal/logging"
	"github.com/snapetech/mediadl/internal/server"
)

func main() {
	_ = config.LoadEnvFile(".env")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runAddr := runCmd.String("addr", "", "Listen address (default: MEDIADL_ADDR or :8080)")
	runSkipHealth := runCmd.Bool("skip-health", false, "Skip the yt-dlp check at startup")

	resolveCmd := flag.NewFlagSet("resolve", flag.ExitOnError)
	resolveURL := resolveCmd.String("url", "", "URL to resolve (required)")
	resolveIndex := resolveCmd.Int("index", -1, "Playlist/carousel entry to fetch (0-based); -1 = whole resource")
	resolveRequester := resolveCmd.String("requester", "cli", "Requester recorded on the task")
	resolveTimeout := resolveCmd.Duration("timeout", 10*time.Minute, "Give up waiting after this long")

	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	historyN := historyCmd.Int("n", 20, "Number of entries")
	historyJSON := historyCmd.Bool("json", false, "Print JSON instead of a table")

	probeCmd := flag.NewFlagSet("probe", flag.ExitOnError)
	probeServer := probeCmd.String("server", "", "Also check /healthz and /metrics on a running mediadl (e.g. http://localhost:8080)")
	probeTimeout := probeCmd.Duration("timeout", 30*time.Second, "Overall timeout")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <run|resolve|history|probe> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  run      Check yt-dlp, start cache eviction, serve the HTTP API (for systemd)\n")
		fmt.Fprintf(os.Stderr, "  resolve  Resolve one URL and print the artifact as JSON\n")
		fmt.Fprintf(os.Stderr, "  history  Print recent fetches from the journal\n")
		fmt.Fprintf(os.Stderr, "  probe    Check the configured yt-dlp binary or service\n")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	switch os.Args[1] {
	case "run":
		_ = runCmd.Parse(os.Args[2:])
		if *runAddr != "" {
			cfg.Addr = *runAddr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !*runSkipHealth {
			hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			desc, err := checkFetcher(hctx, cfg)
			cancel()
			if err != nil {
				log.Error().Err(err).Str("mode", cfg.FetchMode).Msg("fetcher health check failed")
				os.Exit(1)
			}
			log.Info().Str("fetcher", desc).Msg("fetcher ok")
		}

		st, err := buildStack(cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("startup failed")
			os.Exit(1)
		}
		defer st.Close()

		ticker := eviction.New(st.results, cfg.EvictionInterval, st.metrics, logging.Component(log, "eviction"))
		tickerDone := make(chan struct{})
		go func() {
			defer close(tickerDone)
			_ = ticker.Run(ctx)
		}()

		srv := &server.Server{
			Addr:        cfg.Addr,
			Coordinator: st.coordinator,
			Journal:     st.journal,
			Metrics:     st.metrics,
			Log:         logging.Component(log, "http"),
		}
		log.Info().
			Str("mode", cfg.FetchMode).
			Str("download_dir", cfg.DownloadDir).
			Dur("cache_ttl", cfg.CacheTTL).
			Dur("eviction_interval", cfg.EvictionInterval).
			Bool("journal", st.journal != nil).
			Msg("mediadl starting")
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("server failed")
			stop()
			<-tickerDone
			os.Exit(1)
		}
		<-tickerDone

	case "resolve":
		_ = resolveCmd.Parse(os.Args[2:])
		if *resolveURL == "" {
			fmt.Fprintln(os.Stderr, "Set -url")
			os.Exit(1)
		}
		if *resolveIndex < -1 {
			fmt.Fprintln(os.Stderr, "-index must be >= 0 (or -1 for the whole resource)")
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, *resolveTimeout)
		defer cancel()

		st, err := buildStack(cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("startup failed")
			os.Exit(1)
		}
		defer st.Close()
		var out any
		if *resolveIndex >= 0 {
			out, err = st.coordinator.ResolveItem(ctx, *resolveURL, uint32(*resolveIndex), *resolveRequester)
		} else {
			out, err = st.coordinator.Resolve(ctx, *resolveURL, *resolveRequester)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", coordinator.Code(err), err)
			st.Close()
			os.Exit(exitCode(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)

	case "history":
		_ = historyCmd.Parse(os.Args[2:])
		if cfg.JournalPath == "" {
			fmt.Fprintln(os.Stderr, "Set MEDIADL_JOURNAL to the journal database path")
			os.Exit(1)
		}
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer j.Close()
		entries, err := j.Recent(context.Background(), *historyN)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			j.Close()
			os.Exit(1)
		}
		if *historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(entries)
			return
		}
		printHistory(entries)

	case "probe":
		_ = probeCmd.Parse(os.Args[2:])
		ctx, cancel := context.WithTimeout(context.Background(), *probeTimeout)
		defer cancel()
		failed := false
		desc, err := checkFetcher(ctx, cfg)
		if err != nil {
			fmt.Printf("fetcher  FAIL  %s: %v\n", cfg.FetchMode, err)
			failed = true
		} else {
			fmt.Printf("fetcher  OK    %s\n", desc)
		}
		if *probeServer != "" {
			if err := health.CheckEndpoints(ctx, *probeServer); err != nil {
				fmt.Printf("server   FAIL  %s: %v\n", *probeServer, err)
				failed = true
			} else {
				fmt.Printf("server   OK    %s\n", *probeServer)
			}
		}
		if failed {
			cancel()
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

// exitCode gives scripts something to branch on: 2 unsupported, 3 unavailable, 4 in progress, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnsupportedSource):
		return 2
	case errors.Is(err, coordinator.ErrContentUnavailable):
		return 3
	case errors.Is(err, coordinator.ErrAlreadyInProgress):
		return 4
	}
	return 1
}

func printHistory(entries []journal.Entry) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tSTATE\tPROVIDER\tKIND\tSIZE\tURL\tDETAIL")
	for _, e := range entries {
		detail := e.Title
		if e.Error != "" {
			detail = e.Error
		}
		if len(detail) > 60 {
			detail = detail[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.FinishedAt.Format(time.DateTime), e.State, e.Provider, e.Kind, e.SizeBytes, e.URL, detail)
	}
	tw.Flush()
}
