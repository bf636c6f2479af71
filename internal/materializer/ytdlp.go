package materializer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/cache"
	"github.com/snapetech/mediadl/internal/media"
	"github.com/snapetech/mediadl/internal/safeurl"
)

const (
	DefaultMetadataTimeout = 30 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute
)

// YtDlp runs the yt-dlp binary on this host.
// Every download goes to its own run directory under the URL's stable
// directory (see cache.Dir).
type YtDlp struct {
	Bin             string // default "yt-dlp"
	DownloadDir     string
	MetadataTimeout time.Duration
	DownloadTimeout time.Duration
	Log             zerolog.Logger
}

var _ Fetcher = (*YtDlp)(nil)

func (y *YtDlp) Fetch(ctx context.Context, url string) (media.Artifact, error) {
	return fetch(ctx, y, url)
}

func (y *YtDlp) FetchItem(ctx context.Context, url string, index uint32) (media.Artifact, error) {
	return fetchItem(ctx, y, url, index)
}

func (y *YtDlp) metadata(ctx context.Context, url string, single bool) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(y.MetadataTimeout, DefaultMetadataTimeout))
	defer cancel()
	args := []string{"--dump-single-json", "--no-warnings"}
	if single {
		// Only matters for watch?v=X&list=Y; a plain playlist URL still lists its entries.
		args = append(args, "--no-playlist")
	}
	out, err := y.run(ctx, "metadata", url, append(args, "--", url)...)
	if err != nil {
		return nil, err
	}
	md, err := ParseMetadata(out)
	if err != nil {
		return nil, toolError("metadata", url, "", err)
	}
	return md, nil
}

func (y *YtDlp) download(ctx context.Context, url string, index int) (downloaded, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(y.DownloadTimeout, DefaultDownloadTimeout))
	defer cancel()
	base := cache.Dir(y.DownloadDir, url, index)
	if err := os.MkdirAll(base, 0755); err != nil {
		return downloaded{}, err
	}
	// Item requests are not deduplicated and Fetch of a container shares index 0
	// with ResolveItem(url, 0): each invocation gets its own run directory.
	dir, err := os.MkdirTemp(base, "run-")
	if err != nil {
		return downloaded{}, err
	}
	args := []string{
		"--no-warnings",
		"-o", filepath.Join(dir, "%(title)s-%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
		"--no-simulate",
	}
	if index < 0 {
		args = append(args, "--no-playlist")
	} else {
		args = append(args, "--yes-playlist", "--playlist-items", strconv.Itoa(index+1))
	}
	args = append(args, "--", url)
	out, err := y.run(ctx, "download", url, args...)
	if err != nil {
		return downloaded{}, err
	}
	path := lastLine(out)
	if path == "" {
		// Older yt-dlp builds print nothing for after_move; the directory is ours alone.
		path, err = newestFile(dir)
		if err != nil {
			return downloaded{}, toolError("download", url, "could not determine downloaded file", err)
		}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return downloaded{}, toolError("download", url, "downloaded file not found: "+path, err)
	}
	y.Log.Info().Str("url", safeurl.Redact(url)).Str("path", path).Int64("bytes", fi.Size()).Msg("download ok")
	return downloaded{Path: path, Size: uint64(fi.Size())}, nil
}

// run executes yt-dlp and returns stdout. A non-zero exit becomes a ToolError carrying stderr.
func (y *YtDlp) run(ctx context.Context, op, url string, args ...string) ([]byte, error) {
	bin := y.Bin
	if bin == "" {
		bin = "yt-dlp"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	y.Log.Debug().Str("op", op).Str("url", safeurl.Redact(url)).Dur("took", time.Since(start)).Err(err).Msg("yt-dlp exited")
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, toolError(op, url, "timed out", ctx.Err())
		}
		return nil, toolError(op, url, tail(stderr.String(), 4), fmt.Errorf("%s: %w", bin, err))
	}
	return stdout.Bytes(), nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// tail keeps the last n non-empty lines; yt-dlp puts the actual error at the end.
func tail(s string, n int) string {
	var keep []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			keep = append(keep, l)
		}
	}
	if len(keep) > n {
		keep = keep[len(keep)-n:]
	}
	return strings.Join(keep, "\n")
}

// newestFile returns the most recently modified regular file in dir, ignoring
// hidden files and yt-dlp's .part/.ytdl leftovers.
func newestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var best string
	var bestMod time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || fi.ModTime().After(bestMod) {
			best, bestMod = filepath.Join(dir, name), fi.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no files in %s", dir)
	}
	return best, nil
}
