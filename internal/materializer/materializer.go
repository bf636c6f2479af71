package materializer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/snapetech/mediadl/internal/media"
)

// Fetcher downloads media for a URL.
// Fetch downloads the whole resource, or entry 0 of a playlist/carousel with every entry listed in Items.
// FetchItem downloads one entry of a container by 0-based index.
// Errors wrap media.ErrUnavailable when the upstream reports the content as private or removed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (media.Artifact, error)
	FetchItem(ctx context.Context, url string, index uint32) (media.Artifact, error)
}

// ErrItemOutOfRange is returned by FetchItem for an index the resource does not have.
var ErrItemOutOfRange = errors.New("item index out of range")

// ToolError is a failed yt-dlp run or yt-dlp service call.
type ToolError struct {
	Op  string // metadata, download
	URL string
	Msg string // tool stderr or service error text
	Err error

	unavailable bool
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "yt-dlp %s", e.Op)
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is matches media.ErrUnavailable when the tool output says the content cannot be accessed.
func (e *ToolError) Is(target error) bool {
	return target == media.ErrUnavailable && e.unavailable
}

func toolError(op, url, msg string, err error) *ToolError {
	msg = strings.TrimSpace(msg)
	return &ToolError{Op: op, URL: url, Msg: msg, Err: err, unavailable: unavailable(msg)}
}

// Phrases yt-dlp (and the service wrapping it) use for content nobody can fetch.
var unavailableMarkers = []string{
	"private",
	"unavailable",
	"removed",
	"blocked",
	"not available",
	"has been terminated",
}

func unavailable(msg string) bool {
	m := strings.ToLower(msg)
	for _, s := range unavailableMarkers {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}
