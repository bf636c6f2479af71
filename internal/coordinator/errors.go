package coordinator

import (
	"errors"
	"fmt"

	"github.com/snapetech/mediadl/internal/media"
)

// Error categories returned by Resolve and ResolveItem. Match with errors.Is.
var (
	// ErrUnsupportedSource: the URL does not belong to a known provider.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrAlreadyInProgress: another Resolve for the same URL is still fetching. Wait, then retry.
	ErrAlreadyInProgress = errors.New("already in progress")
	// ErrContentUnavailable: the upstream reports the content as private, removed or blocked.
	ErrContentUnavailable = errors.New("content unavailable")
	// ErrFetchFailed: any other fetch failure. Safe to retry later.
	ErrFetchFailed = errors.New("fetch failed")
)

// FetchError is a fetcher failure mapped to ErrContentUnavailable or ErrFetchFailed.
// It matches both its category and the underlying error.
type FetchError struct {
	URL  string
	Kind error
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{e.Kind, e.Err} }

func mapFetchError(url string, err error) *FetchError {
	kind := ErrFetchFailed
	if errors.Is(err, media.ErrUnavailable) {
		kind = ErrContentUnavailable
	}
	return &FetchError{URL: url, Kind: kind, Err: err}
}

// Code is a stable short name for err's category, for API bodies and logs.
// Errors outside the taxonomy return "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedSource):
		return "unsupported_source"
	case errors.Is(err, ErrAlreadyInProgress):
		return "already_in_progress"
	case errors.Is(err, ErrContentUnavailable):
		return "content_unavailable"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	}
	return "internal"
}
