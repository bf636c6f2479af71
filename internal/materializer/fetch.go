package materializer

import (
	"context"
	"fmt"
	neturl "net/url"
	"strconv"

	"github.com/snapetech/mediadl/internal/media"
	"github.com/snapetech/mediadl/internal/probe"
)

// backend is what YtDlp and Service have in common: metadata lookup and a
// download that reports where the file landed. index < 0 means "no playlist selection".
// single asks for the addressed video only when the URL also names a playlist.
type backend interface {
	metadata(ctx context.Context, url string, single bool) (*Metadata, error)
	download(ctx context.Context, url string, index int) (downloaded, error)
}

type downloaded struct {
	Path string
	Size uint64
}

func fetch(ctx context.Context, b backend, url string) (media.Artifact, error) {
	md, err := b.metadata(ctx, url, true)
	if err != nil {
		return media.Artifact{}, err
	}
	// watch?v=X&list=Y is video X, even if the backend answered with the playlist.
	if id := playlistVideoID(url); id != "" && md.IsContainer() {
		md = md.entryByID(id)
	}
	if !md.IsContainer() {
		f, err := b.download(ctx, url, -1)
		if err != nil {
			return media.Artifact{}, err
		}
		return media.Artifact{
			SourceURL: url,
			Kind:      kindOf(md, f.Path),
			Title:     md.titleOr("Media"),
			SizeBytes: f.Size,
			LocalPath: f.Path,
		}, nil
	}
	if len(md.Entries) == 0 {
		return media.Artifact{}, toolError("metadata", url, "playlist has no entries", nil)
	}
	items := md.Refs(url)
	f, err := b.download(ctx, url, 0)
	if err != nil {
		return media.Artifact{}, err
	}
	return media.Artifact{
		SourceURL: url,
		Kind:      kindOf(md.Entries[0], f.Path),
		Title:     md.titleOr("Media"),
		SizeBytes: f.Size,
		LocalPath: f.Path,
		Items:     items,
	}, nil
}

func fetchItem(ctx context.Context, b backend, url string, index uint32) (media.Artifact, error) {
	md, err := b.metadata(ctx, url, false)
	if err != nil {
		return media.Artifact{}, err
	}
	entry := md
	sel := -1
	if md.IsContainer() {
		if int(index) >= len(md.Entries) {
			return media.Artifact{}, fmt.Errorf("item %d of %d: %w", index, len(md.Entries), ErrItemOutOfRange)
		}
		entry = md.Entries[index]
		sel = int(index)
	} else if index != 0 {
		return media.Artifact{}, fmt.Errorf("item %d of single item: %w", index, ErrItemOutOfRange)
	}
	f, err := b.download(ctx, url, sel)
	if err != nil {
		return media.Artifact{}, err
	}
	return media.Artifact{
		SourceURL: url,
		Kind:      kindOf(entry, f.Path),
		Title:     entry.titleOr("Item " + strconv.Itoa(int(index)+1)),
		SizeBytes: f.Size,
		LocalPath: f.Path,
	}, nil
}

// kindOf prefers metadata; when it says nothing useful the file extension decides.
func kindOf(md *Metadata, path string) media.Kind {
	if k := md.Kind(); k != media.KindDocument {
		return k
	}
	return probe.KindOfPath(path)
}

// playlistVideoID returns v when rawURL addresses one video inside a playlist
// (both v= and list= present), else "".
func playlistVideoID(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	if q.Get("list") == "" {
		return ""
	}
	return q.Get("v")
}
