package httpclient

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is sent by callers that decode bodies with DecodeBody.
const AcceptEncoding = "br, gzip"

// DecodeBody wraps resp.Body according to Content-Encoding (br, gzip, identity).
// Setting Accept-Encoding by hand turns off net/http's transparent gzip, so both are handled here.
// Closing the returned reader closes resp.Body.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch enc {
	case "", "identity":
		return resp.Body, nil
	case "br":
		return readCloser{Reader: brotli.NewReader(resp.Body), close: resp.Body.Close}, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return readCloser{Reader: zr, close: func() error {
			zr.Close()
			return resp.Body.Close()
		}}, nil
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }
