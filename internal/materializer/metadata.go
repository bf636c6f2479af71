package materializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/snapetech/mediadl/internal/media"
	"github.com/snapetech/mediadl/internal/probe"
)

// Metadata is the subset of yt-dlp's info JSON that the fetchers read.
// Entries is non-nil for playlists and carousels; yt-dlp emits null for entries it could not extract.
type Metadata struct {
	ID             string      `json:"id"`
	Type           string      `json:"_type"`
	Title          string      `json:"title"`
	Ext            string      `json:"ext"`
	VCodec         string      `json:"vcodec"`
	ACodec         string      `json:"acodec"`
	Filesize       float64     `json:"filesize"`
	FilesizeApprox float64     `json:"filesize_approx"`
	URL            string      `json:"url"`
	WebpageURL     string      `json:"webpage_url"`
	PlaylistTitle  string      `json:"playlist_title"`
	Entries        []*Metadata `json:"entries"`
}

// ParseMetadata decodes yt-dlp output. A single object is returned as is.
// Several objects (--dump-json on a playlist prints one per line) are gathered into a container.
func ParseMetadata(data []byte) (*Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var docs []*Metadata
	for {
		var m Metadata
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
		docs = append(docs, &m)
	}
	switch len(docs) {
	case 0:
		return nil, errors.New("parse metadata: empty output")
	case 1:
		return docs[0], nil
	}
	return &Metadata{Type: "playlist", Title: docs[0].PlaylistTitle, Entries: docs}, nil
}

// IsContainer reports whether m describes a playlist or carousel.
func (m *Metadata) IsContainer() bool {
	return m.Entries != nil
}

// Kind maps codecs and extension to a media kind.
func (m *Metadata) Kind() media.Kind {
	if m == nil {
		return media.KindDocument
	}
	return probe.Kind(m.VCodec, m.ACodec, m.Ext)
}

// Size is filesize, falling back to filesize_approx.
func (m *Metadata) Size() uint64 {
	if m == nil {
		return 0
	}
	if m.Filesize > 0 {
		return uint64(m.Filesize)
	}
	if m.FilesizeApprox > 0 {
		return uint64(m.FilesizeApprox)
	}
	return 0
}

func (m *Metadata) titleOr(def string) string {
	if m == nil || m.Title == "" {
		return def
	}
	return m.Title
}

// Refs lists the container entries. Missing titles become "Item N" (1-based) and
// missing URLs fall back to the container URL.
func (m *Metadata) Refs(containerURL string) []media.Ref {
	refs := make([]media.Ref, 0, len(m.Entries))
	for i, e := range m.Entries {
		ref := media.Ref{
			Index:     uint32(i),
			URL:       containerURL,
			Kind:      e.Kind(),
			Title:     e.titleOr("Item " + strconv.Itoa(i+1)),
			SizeBytes: e.Size(),
		}
		if e != nil {
			switch {
			case e.URL != "":
				ref.URL = e.URL
			case e.WebpageURL != "":
				ref.URL = e.WebpageURL
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// entryByID returns the entry with the given id, or a bare single item carrying
// only that id when the playlist listing does not include it.
func (m *Metadata) entryByID(id string) *Metadata {
	if m != nil {
		for _, e := range m.Entries {
			if e != nil && e.ID == id {
				return e
			}
		}
	}
	return &Metadata{ID: id}
}
