package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes before a URL reaches yt-dlp.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return s == "http" || s == "https"
}

// WithDefaultScheme prefixes https:// when s carries no scheme ("youtu.be/x").
func WithDefaultScheme(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	return "https://" + s
}

// Redact drops userinfo and the query string for logs and error text;
// provider URLs may carry credentials or tokens.
func Redact(s string) string {
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		u.User = nil
		if u.RawQuery != "" || u.ForceQuery {
			u.RawQuery = "[redacted]"
			u.ForceQuery = false
			u.Fragment, u.RawFragment = "", ""
		}
		return u.String()
	}
	suffix := ""
	if i := strings.Index(s, "?"); i >= 0 {
		s, suffix = s[:i], "?[redacted]"
	}
	start := 0
	if i := strings.Index(s, "://"); i >= 0 {
		start = i + 3
	}
	end := len(s)
	if i := strings.IndexByte(s[start:], '/'); i >= 0 {
		end = start + i
	}
	if at := strings.LastIndexByte(s[start:end], '@'); at >= 0 {
		s = s[:start] + s[start+at+1:]
	}
	return s + suffix
}
