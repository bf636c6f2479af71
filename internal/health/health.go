package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/snapetech/mediadl/internal/httpclient"
)

// CheckService calls GET /health on the yt-dlp HTTP service. Returns nil if it answers
// 200 with {"status":"ok"}.
func CheckService(ctx context.Context, baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("no yt-dlp service URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	client := httpclient.New(15 * time.Second)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("yt-dlp service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yt-dlp service returned HTTP %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return fmt.Errorf("yt-dlp service health body: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("yt-dlp service status %q", body.Status)
	}
	return nil
}

// CheckEndpoints hits /healthz and /metrics on a running mediadl server and returns the first error or nil.
func CheckEndpoints(ctx context.Context, baseURL string) error {
	client := httpclient.New(5 * time.Second)
	for _, path := range []string{"/healthz", "/metrics"} {
		url := strings.TrimRight(baseURL, "/") + path
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
		}
	}
	return nil
}

// CheckBinary runs "<bin> --version" and returns the reported version.
func CheckBinary(ctx context.Context, bin string) (string, error) {
	if bin == "" {
		return "", errors.New("no yt-dlp binary configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", bin, err)
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", fmt.Errorf("%s --version printed nothing", bin)
	}
	return v, nil
}

// Result is the outcome of probing the yt-dlp service.
type Result struct {
	URL        string `json:"url"`
	Status     Status `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Version    string `json:"version,omitempty"`
}

type Status string

const (
	StatusOK        Status = "ok"
	StatusBadStatus Status = "bad_status"
	StatusBadBody   Status = "bad_body"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
)

// ProbeService fetches GET /version from the service and classifies the result.
// Unlike CheckService it never fails; the Status says what went wrong.
func ProbeService(ctx context.Context, baseURL string, client *http.Client) Result {
	if client == nil {
		client = httpclient.New(15 * time.Second)
	}
	url := strings.TrimRight(baseURL, "/") + "/version"
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{URL: url, Status: StatusError, LatencyMs: time.Since(start).Milliseconds()}
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	resp, err := client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return Result{URL: url, Status: StatusTimeout, LatencyMs: latency}
		}
		return Result{URL: url, Status: StatusError, LatencyMs: latency}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{URL: url, Status: StatusBadStatus, StatusCode: resp.StatusCode, LatencyMs: latency}
	}
	var body struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil || body.Version == "" {
		return Result{URL: url, Status: StatusBadBody, StatusCode: resp.StatusCode, LatencyMs: latency}
	}
	return Result{URL: url, Status: StatusOK, StatusCode: resp.StatusCode, LatencyMs: latency, Version: body.Version}
}
