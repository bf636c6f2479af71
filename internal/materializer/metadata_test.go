package materializer

import (
	"errors"
	"testing"

	"github.com/snapetech/mediadl/internal/media"
)

func TestParseMetadata_single(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"id":"abc","title":"Clip","ext":"mp4","vcodec":"avc1","acodec":"mp4a","filesize":1234}`))
	if err != nil {
		t.Fatal(err)
	}
	if md.IsContainer() {
		t.Error("single video reported as container")
	}
	if md.Kind() != media.KindVideo || md.Size() != 1234 || md.Title != "Clip" {
		t.Errorf("got kind=%s size=%d title=%q", md.Kind(), md.Size(), md.Title)
	}
}

func TestParseMetadata_jsonLinesBecomeContainer(t *testing.T) {
	out := `{"id":"a","title":"One","playlist_title":"Album","ext":"jpg","vcodec":"none","acodec":"none"}
{"id":"b","title":"Two","playlist_title":"Album","ext":"mp4","vcodec":"h264"}
`
	md, err := ParseMetadata([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if !md.IsContainer() || len(md.Entries) != 2 {
		t.Fatalf("want container of 2, got %+v", md)
	}
	if md.Title != "Album" {
		t.Errorf("title = %q", md.Title)
	}
	if md.Entries[0].Kind() != media.KindPhoto || md.Entries[1].Kind() != media.KindVideo {
		t.Errorf("entry kinds = %s, %s", md.Entries[0].Kind(), md.Entries[1].Kind())
	}
}

func TestParseMetadata_errors(t *testing.T) {
	for _, in := range []string{"", "   ", "not json", `{"id":`} {
		if _, err := ParseMetadata([]byte(in)); err == nil {
			t.Errorf("ParseMetadata(%q) should fail", in)
		}
	}
}

func TestMetadataSize_approxFallback(t *testing.T) {
	md := &Metadata{FilesizeApprox: 99.6}
	if md.Size() != 99 {
		t.Errorf("Size = %d", md.Size())
	}
	var nilMD *Metadata
	if nilMD.Size() != 0 || nilMD.Kind() != media.KindDocument {
		t.Error("nil metadata should be empty document")
	}
}

func TestRefs_defaults(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"_type":"playlist","title":"P","entries":[
		{"title":"First","url":"https://youtu.be/1","ext":"mp4","filesize":10},
		null,
		{"webpage_url":"https://youtu.be/3","acodec":"opus","filesize_approx":30}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	refs := md.Refs("https://youtube.com/playlist?list=x")
	if len(refs) != 3 {
		t.Fatalf("len = %d", len(refs))
	}
	want := []media.Ref{
		{Index: 0, URL: "https://youtu.be/1", Kind: media.KindVideo, Title: "First", SizeBytes: 10},
		{Index: 1, URL: "https://youtube.com/playlist?list=x", Kind: media.KindDocument, Title: "Item 2"},
		{Index: 2, URL: "https://youtu.be/3", Kind: media.KindAudio, Title: "Item 3", SizeBytes: 30},
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("ref %d = %+v, want %+v", i, refs[i], want[i])
		}
	}
}

func TestToolError_unavailable(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"ERROR: [youtube] abc: Private video. Sign in if you've been granted access", true},
		{"ERROR: Video unavailable", true},
		{"This video has been removed by the uploader", true},
		{"The uploader has not made this video available in your country; blocked", true},
		{"HTTP Error 500: Internal Server Error", false},
		{"timed out", false},
	}
	for _, tt := range tests {
		err := error(toolError("download", "u", tt.msg, nil))
		if got := errors.Is(err, media.ErrUnavailable); got != tt.want {
			t.Errorf("%q: unavailable = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestToolError_message(t *testing.T) {
	e := toolError("metadata", "u", "", errors.New("exit status 1"))
	if e.Error() != "yt-dlp metadata: exit status 1" {
		t.Errorf("Error() = %q", e.Error())
	}
	e = toolError("download", "u", "  boom \n", nil)
	if e.Error() != "yt-dlp download: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
}
