package materializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/httpclient"
	"github.com/snapetech/mediadl/internal/media"
	"github.com/snapetech/mediadl/internal/safeurl"
)

const maxServiceBody = 64 << 20

// Service calls the yt-dlp HTTP wrapper (POST /metadata, POST /download).
// The wrapper writes to a volume shared with this process, so the reported
// filePath must exist locally.
type Service struct {
	BaseURL         string
	MetadataTimeout time.Duration
	DownloadTimeout time.Duration
	Client          *http.Client            // nil: httpclient.Default; calls are bounded by ctx
	Limiter         *httpclient.HostLimiter // nil: unlimited
	Retry           *httpclient.RetryPolicy // nil: httpclient.DefaultRetryPolicy
	Log             zerolog.Logger
}

var _ Fetcher = (*Service)(nil)

type downloadRequest struct {
	URL       string `json:"url"`
	ItemIndex int    `json:"itemIndex,omitempty"`
}

type downloadResponse struct {
	FilePath  string `json:"filePath"`
	FileName  string `json:"fileName"`
	SizeBytes int64  `json:"sizeBytes"`
}

func (s *Service) Fetch(ctx context.Context, url string) (media.Artifact, error) {
	return fetch(ctx, s, url)
}

func (s *Service) FetchItem(ctx context.Context, url string, index uint32) (media.Artifact, error) {
	return fetchItem(ctx, s, url, index)
}

// metadata ignores single: the service has no option for it, so fetch picks the
// addressed entry out of the playlist itself.
func (s *Service) metadata(ctx context.Context, url string, _ bool) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(s.MetadataTimeout, DefaultMetadataTimeout))
	defer cancel()
	data, err := s.post(ctx, "metadata", "/metadata", url, map[string]string{"url": url})
	if err != nil {
		return nil, err
	}
	md, err := ParseMetadata(data)
	if err != nil {
		return nil, toolError("metadata", url, "", err)
	}
	return md, nil
}

func (s *Service) download(ctx context.Context, url string, index int) (downloaded, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(s.DownloadTimeout, DefaultDownloadTimeout))
	defer cancel()
	body := downloadRequest{URL: url}
	if index > 0 {
		body.ItemIndex = index
	}
	data, err := s.post(ctx, "download", "/download", url, body)
	if err != nil {
		return downloaded{}, err
	}
	var resp downloadResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return downloaded{}, toolError("download", url, "", fmt.Errorf("decode response: %w", err))
	}
	if resp.FilePath == "" {
		return downloaded{}, toolError("download", url, "service returned no file path", nil)
	}
	fi, err := os.Stat(resp.FilePath)
	if err != nil {
		return downloaded{}, toolError("download", url, "downloaded file not found: "+resp.FilePath, err)
	}
	size := resp.SizeBytes
	if size <= 0 {
		size = fi.Size()
	}
	s.Log.Info().Str("url", safeurl.Redact(url)).Str("path", resp.FilePath).Int64("bytes", size).Msg("download ok")
	return downloaded{Path: resp.FilePath, Size: uint64(size)}, nil
}

// post sends a JSON body and returns the decoded response body of a 200.
// Any other status becomes a ToolError carrying the service's {"error": ...} text.
func (s *Service) post(ctx context.Context, op, path, url string, body any) ([]byte, error) {
	if s.Limiter != nil {
		release, err := s.Limiter.Acquire(ctx, s.BaseURL)
		if err != nil {
			return nil, toolError(op, url, "", err)
		}
		defer release()
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.BaseURL, "/")+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	req.Header.Set("User-Agent", httpclient.UserAgent)

	policy := httpclient.DefaultRetryPolicy
	if s.Retry != nil {
		policy = *s.Retry
	}
	start := time.Now()
	resp, err := httpclient.DoWithRetry(ctx, s.Client, req, policy)
	if err != nil {
		return nil, toolError(op, url, "", err)
	}
	rc, err := httpclient.DecodeBody(resp)
	if err != nil {
		return nil, toolError(op, url, "", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxServiceBody))
	if err != nil {
		return nil, toolError(op, url, "", fmt.Errorf("read response: %w", err))
	}
	s.Log.Debug().Str("op", op).Str("url", safeurl.Redact(url)).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("yt-dlp service call")
	if resp.StatusCode != http.StatusOK {
		return nil, toolError(op, url, serviceError(data), fmt.Errorf("%s %s: %s", http.MethodPost, path, resp.Status))
	}
	return data, nil
}

// serviceError extracts {"error": "..."}; otherwise the raw body, shortened.
func serviceError(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
