package httpclient

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter caps concurrent requests per host and paces how often new ones start.
// The yt-dlp service runs one subprocess per request, so a burst of resolves for
// different URLs would otherwise fork that many downloads at once.
//
//	release, err := limiter.Acquire(ctx, serviceURL)
//	if err != nil { return err }
//	defer release()
type HostLimiter struct {
	limit int
	rps   rate.Limit
	burst int

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

type hostSlot struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewHostLimiter returns a limiter allowing concurrency in-flight requests per host
// and rps request starts per second (rps <= 0 disables pacing).
func NewHostLimiter(concurrency int, rps float64) *HostLimiter {
	if concurrency < 1 {
		concurrency = 1
	}
	h := &HostLimiter{
		limit: concurrency,
		rps:   rate.Inf,
		burst: concurrency,
		hosts: make(map[string]*hostSlot),
	}
	if rps > 0 {
		h.rps = rate.Limit(rps)
	}
	return h
}

// Acquire blocks until a slot is free and the pacing allows a start, or ctx is done.
// host may be any URL; only scheme+host is used.
func (h *HostLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	slot := h.slotFor(host)
	if err := slot.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case slot.sem <- struct{}{}:
		return func() { <-slot.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HostLimiter) slotFor(host string) *hostSlot {
	// Normalise: strip path/query, keep scheme+host.
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.hosts[host]
	if !ok {
		s = &hostSlot{
			sem:     make(chan struct{}, h.limit),
			limiter: rate.NewLimiter(h.rps, h.burst),
		}
		h.hosts[host] = s
	}
	return s
}
