// Package eviction periodically sweeps expired entries out of the result cache.
package eviction

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/metrics"
)

const DefaultInterval = time.Hour

// Sweeper drops expired entries and reports how many it removed. *cache.Results implements it.
type Sweeper interface {
	EvictExpired() int
}

// Ticker runs Sweep on a fixed interval. It never touches the task registry.
type Ticker struct {
	sweeper  Sweeper
	interval time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New returns a Ticker; interval <= 0 means DefaultInterval. cron schedules have
// one-second resolution, so shorter intervals are rounded up to a second.
func New(s Sweeper, interval time.Duration, m *metrics.Metrics, log zerolog.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{sweeper: s, interval: interval, metrics: m, log: log}
}

func (t *Ticker) Interval() time.Duration { return t.interval }

// Sweep runs one eviction pass.
func (t *Ticker) Sweep() int {
	n := t.sweeper.EvictExpired()
	t.metrics.Evicted(n)
	if n > 0 {
		t.log.Info().Int("evicted", n).Msg("expired cache entries removed")
	} else {
		t.log.Debug().Msg("eviction sweep: nothing expired")
	}
	return n
}

// Run schedules Sweep until ctx is done, then waits for a running sweep to finish.
// A sweep still running when the next tick fires is not doubled up.
func (t *Ticker) Run(ctx context.Context) error {
	cl := cronLogger{log: t.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(cron.Every(t.interval), cron.FuncJob(func() { t.Sweep() }))
	t.log.Info().Dur("interval", t.interval).Msg("eviction ticker started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	t.log.Info().Msg("eviction ticker stopped")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

var _ cron.Logger = cronLogger{}
