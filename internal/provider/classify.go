package provider

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/snapetech/mediadl/internal/safeurl"
)

// Tag names the upstream a URL belongs to. Unknown is the zero value.
type Tag string

const (
	Unknown   Tag = ""
	YouTube   Tag = "youtube"
	VK        Tag = "vk"
	Instagram Tag = "instagram"
)

// Known reports whether t names a supported provider.
func (t Tag) Known() bool { return t != Unknown }

func (t Tag) String() string {
	if t == Unknown {
		return "unknown"
	}
	return string(t)
}

// Classifier maps a URL to a provider tag.
type Classifier interface {
	Classify(rawURL string) Tag
}

// Domains classifies by registrable domain (eTLD+1), so subdomains such as
// m.youtube.com match while lookalikes such as youtube.com.example.net do not.
type Domains map[string]Tag

// DefaultDomains covers the providers the fetcher is known to handle.
var DefaultDomains = Domains{
	"youtube.com":   YouTube,
	"youtu.be":      YouTube,
	"vk.com":        VK,
	"vk.ru":         VK,
	"instagram.com": Instagram,
	"instagr.am":    Instagram,
}

// Classify returns the provider for rawURL, or Unknown.
// A missing scheme is treated as https; any scheme other than http/https is Unknown.
func (d Domains) Classify(rawURL string) Tag {
	s := safeurl.WithDefaultScheme(strings.ToLower(rawURL))
	if s == "" {
		return Unknown
	}
	if !safeurl.IsHTTPOrHTTPS(s) {
		return Unknown
	}
	u, err := url.Parse(s)
	if err != nil {
		return Unknown
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return Unknown
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return Unknown
	}
	return d[domain]
}
