package probe

import (
	"path/filepath"
	"strings"

	"github.com/snapetech/mediadl/internal/media"
)

var extKinds = map[string]media.Kind{
	"mp4":  media.KindVideo,
	"webm": media.KindVideo,
	"mkv":  media.KindVideo,
	"avi":  media.KindVideo,
	"mov":  media.KindVideo,
	"jpg":  media.KindPhoto,
	"jpeg": media.KindPhoto,
	"png":  media.KindPhoto,
	"gif":  media.KindPhoto,
	"webp": media.KindPhoto,
	"mp3":  media.KindAudio,
	"m4a":  media.KindAudio,
	"opus": media.KindAudio,
	"ogg":  media.KindAudio,
	"wav":  media.KindAudio,
}

// Kind classifies yt-dlp format metadata.
// A real video codec wins, then a real audio codec, then the extension; anything else is a document.
func Kind(vcodec, acodec, ext string) media.Kind {
	if hasCodec(vcodec) {
		return media.KindVideo
	}
	if hasCodec(acodec) {
		return media.KindAudio
	}
	if k, ok := extKinds[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))]; ok {
		return k
	}
	return media.KindDocument
}

// KindOfPath classifies a downloaded file by its extension only.
func KindOfPath(path string) media.Kind {
	return Kind("", "", filepath.Ext(path))
}

func hasCodec(c string) bool {
	c = strings.TrimSpace(c)
	return c != "" && !strings.EqualFold(c, "none")
}
