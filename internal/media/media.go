package media

import (
	"errors"
	"slices"
)

// Kind is the coarse media type of a fetched file.
type Kind string

const (
	KindVideo    Kind = "video"
	KindPhoto    Kind = "photo"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

// ErrUnavailable is wrapped by fetchers when the upstream says the content is
// private, removed or blocked. It is not retryable.
var ErrUnavailable = errors.New("content unavailable")

// Artifact is a materialized download.
// Items is empty for a single file. For a playlist or carousel it lists every entry,
// and Kind/SizeBytes/LocalPath describe the entry that was actually downloaded (index 0).
type Artifact struct {
	SourceURL string `json:"source_url"`
	Kind      Kind   `json:"kind"`
	Title     string `json:"title"`
	SizeBytes uint64 `json:"size_bytes"`
	LocalPath string `json:"local_path"`
	Items     []Ref  `json:"items,omitempty"`
}

// Ref is metadata for one entry of a container. Nothing is on disk until it is
// fetched on its own.
type Ref struct {
	Index     uint32 `json:"index"` // 0-based, stable within one container
	URL       string `json:"url"`
	Kind      Kind   `json:"kind"`
	Title     string `json:"title"`
	SizeBytes uint64 `json:"size_bytes"`
}

// IsContainer reports whether a holds more than one selectable entry.
func (a Artifact) IsContainer() bool {
	return len(a.Items) > 0
}

// Clone returns a copy that shares no memory with a.
func (a Artifact) Clone() Artifact {
	a.Items = slices.Clone(a.Items)
	return a
}
