// Package httpclient is the HTTP plumbing for talking to the yt-dlp service:
// tuned clients, retry, per-host limits and response decoding.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const UserAgent = "mediadl/1.0"

// defaultClient has no overall timeout: every caller bounds its request with a context deadline.
var defaultClient = New(0)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		// DecodeBody handles br and gzip; keep the transport from negotiating on its own.
		DisableCompression: true,
	}
}

// Default returns the shared client.
func Default() *http.Client {
	return defaultClient
}

// New returns a client with its own transport and the given overall timeout (0 = none).
// Downloads through the yt-dlp service can take minutes, so they get their own client.
func New(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: newTransport()}
}
