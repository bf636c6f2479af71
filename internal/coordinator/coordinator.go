// Package coordinator sequences a resolve: cache lookup, classification, claim,
// fetch, then cache write and task completion.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/cache"
	"github.com/snapetech/mediadl/internal/journal"
	"github.com/snapetech/mediadl/internal/materializer"
	"github.com/snapetech/mediadl/internal/media"
	"github.com/snapetech/mediadl/internal/metrics"
	"github.com/snapetech/mediadl/internal/provider"
	"github.com/snapetech/mediadl/internal/safeurl"
	"github.com/snapetech/mediadl/internal/task"
)

const recordTimeout = 5 * time.Second

// Recorder receives one entry per finished Resolve fetch. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Config wires a Coordinator. Fetcher is required; nil Cache, Tasks and Classifier
// get defaults, nil Metrics and Journal disable them.
type Config struct {
	Cache      *cache.Results
	Tasks      *task.Registry
	Classifier provider.Classifier
	Fetcher    materializer.Fetcher
	Metrics    *metrics.Metrics
	Journal    Recorder
	Log        zerolog.Logger
}

// Coordinator is safe for concurrent use. It holds no lock of its own: the cache
// and the registry serialise their own state, and nothing is held across a fetch.
type Coordinator struct {
	cache      *cache.Results
	tasks      *task.Registry
	classifier provider.Classifier
	fetcher    materializer.Fetcher
	metrics    *metrics.Metrics
	journal    Recorder
	log        zerolog.Logger

	fetches sync.WaitGroup // detached Resolve fetches, drained by Wait
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("coordinator: fetcher is required")
	}
	c := &Coordinator{
		cache:      cfg.Cache,
		tasks:      cfg.Tasks,
		classifier: cfg.Classifier,
		fetcher:    cfg.Fetcher,
		metrics:    cfg.Metrics,
		journal:    cfg.Journal,
		log:        cfg.Log,
	}
	if c.cache == nil {
		c.cache = cache.NewResults(cache.DefaultTTL)
	}
	if c.tasks == nil {
		c.tasks = task.NewRegistry()
	}
	if c.classifier == nil {
		c.classifier = provider.DefaultDomains
	}
	return c, nil
}

type outcome struct {
	artifact media.Artifact
	err      error
}

// Resolve returns the artifact for url, from the cache when fresh, otherwise by fetching it.
//
// An unknown provider fails with ErrUnsupportedSource before any task exists. A URL
// whose task is still in flight fails immediately with ErrAlreadyInProgress. Fetch
// failures are recorded on the task and returned as a *FetchError.
//
// The fetch is not tied to ctx: if the caller gives up, Resolve returns ctx.Err()
// but the fetch still runs to completion and its result is cached and recorded.
func (c *Coordinator) Resolve(ctx context.Context, url, requester string) (media.Artifact, error) {
	url = strings.TrimSpace(url)
	if a, ok := c.cache.Get(url); ok {
		c.metrics.CacheLookup(true)
		c.metrics.Resolve(metrics.OutcomeCacheHit)
		c.log.Debug().Str("url", safeurl.Redact(url)).Msg("cache hit")
		return a, nil
	}
	c.metrics.CacheLookup(false)

	tag := c.classifier.Classify(url)
	if !tag.Known() {
		c.metrics.Resolve(metrics.OutcomeUnsupported)
		return media.Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, safeurl.Redact(url))
	}

	t := task.Task{
		ID:        uuid.NewString(),
		Key:       url,
		Provider:  tag,
		Requester: requester,
		State:     task.StatePending,
	}
	if !c.tasks.TryClaim(t) {
		c.metrics.Resolve(metrics.OutcomeInProgress)
		return media.Artifact{}, fmt.Errorf("%w: %s", ErrAlreadyInProgress, safeurl.Redact(url))
	}
	log := c.log.With().Str("task_id", t.ID).Str("provider", tag.String()).Str("url", safeurl.Redact(url)).Logger()
	log.Info().Str("requester", requester).Msg("fetch started")

	done := make(chan outcome, 1)
	c.fetches.Add(1)
	go func() {
		defer c.fetches.Done()
		done <- c.runFetch(context.WithoutCancel(ctx), t, log)
	}()

	select {
	case o := <-done:
		c.metrics.Resolve(resolveOutcome(o.err))
		return o.artifact, o.err
	case <-ctx.Done():
		c.metrics.Resolve(metrics.OutcomeAbandoned)
		log.Info().Err(ctx.Err()).Msg("caller stopped waiting; fetch continues")
		return media.Artifact{}, ctx.Err()
	}
}

// runFetch performs the fetch and its continuation (cache write, task transition,
// journal). It runs exactly once per claimed task.
func (c *Coordinator) runFetch(ctx context.Context, t task.Task, log zerolog.Logger) (o outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: mapFetchError(t.Key, fmt.Errorf("fetcher panic: %v", r))}
			c.metrics.FetchDuration(t.Provider.String(), time.Since(start))
			c.tasks.Fail(t.Key, o.err.Error())
			log.Error().Interface("panic", r).Msg("fetch panicked")
			c.record(ctx, t, task.StateFailed, media.Artifact{}, o.err.Error(), start, log)
		}
	}()

	a, err := c.fetcher.Fetch(ctx, t.Key)
	took := time.Since(start)
	c.metrics.FetchDuration(t.Provider.String(), took)
	if err != nil {
		fe := mapFetchError(t.Key, err)
		c.tasks.Fail(t.Key, failMessage(err))
		log.Warn().Err(err).Str("code", Code(fe)).Dur("took", took).Msg("fetch failed")
		c.record(ctx, t, task.StateFailed, a, failMessage(err), start, log)
		return outcome{err: fe}
	}
	if a.SourceURL == "" {
		a.SourceURL = t.Key
	}
	c.cache.Put(t.Key, a)
	c.tasks.Complete(t.Key)
	log.Info().Str("kind", string(a.Kind)).Uint64("bytes", a.SizeBytes).Int("items", len(a.Items)).Dur("took", took).Msg("fetch completed")
	c.record(ctx, t, task.StateCompleted, a, "", start, log)
	return outcome{artifact: a.Clone()}
}

func (c *Coordinator) record(ctx context.Context, t task.Task, state task.State, a media.Artifact, msg string, start time.Time, log zerolog.Logger) {
	if c.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	err := c.journal.Record(ctx, journal.Entry{
		TaskID:     t.ID,
		URL:        t.Key,
		Provider:   t.Provider.String(),
		Requester:  t.Requester,
		State:      string(state),
		Error:      msg,
		Kind:       string(a.Kind),
		Title:      a.Title,
		SizeBytes:  a.SizeBytes,
		LocalPath:  a.LocalPath,
		Items:      len(a.Items),
		StartedAt:  start,
		FinishedAt: time.Now(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("journal write failed")
	}
}

// ResolveItem fetches entry index of a playlist or carousel. Only the provider check
// applies: the cache and the task registry are bypassed, so concurrent requests for
// the same entry each run their own fetch.
func (c *Coordinator) ResolveItem(ctx context.Context, url string, index uint32, requester string) (media.Artifact, error) {
	url = strings.TrimSpace(url)
	tag := c.classifier.Classify(url)
	if !tag.Known() {
		c.metrics.ResolveItem(metrics.OutcomeUnsupported)
		return media.Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, safeurl.Redact(url))
	}
	log := c.log.With().Str("provider", tag.String()).Str("url", safeurl.Redact(url)).Uint32("index", index).Logger()
	start := time.Now()
	a, err := c.fetcher.FetchItem(ctx, url, index)
	c.metrics.FetchDuration(tag.String(), time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			c.metrics.ResolveItem(metrics.OutcomeAbandoned)
			return media.Artifact{}, ctx.Err()
		}
		fe := mapFetchError(url, err)
		c.metrics.ResolveItem(resolveOutcome(fe))
		log.Warn().Err(err).Str("requester", requester).Str("code", Code(fe)).Msg("item fetch failed")
		return media.Artifact{}, fe
	}
	c.metrics.ResolveItem(metrics.OutcomeFetched)
	log.Info().Str("requester", requester).Str("kind", string(a.Kind)).Uint64("bytes", a.SizeBytes).Msg("item fetched")
	return a, nil
}

// Wait blocks until every fetch started by Resolve has run its continuation,
// or ctx is done. Call it after request intake has stopped, before closing the journal.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.fetches.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Task returns the current state of the task for url.
func (c *Coordinator) Task(url string) (task.Task, bool) {
	return c.tasks.Get(strings.TrimSpace(url))
}

// Tasks returns every known task, newest first.
func (c *Coordinator) Tasks() []task.Task {
	return c.tasks.Snapshot()
}

// Stats is a point-in-time view for health output.
type Stats struct {
	CacheEntries  int `json:"cache_entries"`
	TasksInFlight int `json:"tasks_in_flight"`
}

func (c *Coordinator) Stats() Stats {
	return Stats{CacheEntries: c.cache.Len(), TasksInFlight: c.tasks.InFlight()}
}

func failMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return ErrFetchFailed.Error()
}

func resolveOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeFetched
	case errors.Is(err, ErrContentUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeFailed
	}
}
