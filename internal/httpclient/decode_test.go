package httpclient

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"testing"

	"github.com/andybalholm/brotli"
)

func response(enc string, body []byte) *http.Response {
	h := http.Header{}
	if enc != "" {
		h.Set("Content-Encoding", enc)
	}
	return &http.Response{Header: h, Body: io.NopCloser(bytes.NewReader(body))}
}

func TestDecodeBody(t *testing.T) {
	want := []byte(`{"title":"x"}`)

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(want)
	bw.Close()

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write(want)
	gw.Close()

	tests := []struct {
		enc  string
		body []byte
	}{
		{"", want},
		{"identity", want},
		{"br", br.Bytes()},
		{"gzip", gz.Bytes()},
		{" GZIP ", gz.Bytes()},
	}
	for _, tt := range tests {
		rc, err := DecodeBody(response(tt.enc, tt.body))
		if err != nil {
			t.Fatalf("%q: %v", tt.enc, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil || !bytes.Equal(got, want) {
			t.Errorf("%q: got %q, %v", tt.enc, got, err)
		}
	}
}

func TestDecodeBody_unsupported(t *testing.T) {
	if _, err := DecodeBody(response("zstd", []byte("x"))); err == nil {
		t.Error("zstd should be rejected")
	}
	if _, err := DecodeBody(response("gzip", []byte("not gzip"))); err == nil {
		t.Error("corrupt gzip header should fail")
	}
}
