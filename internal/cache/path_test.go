package cache

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDir_stable(t *testing.T) {
	d1 := Dir("/downloads", "https://youtu.be/abc", -1)
	d2 := Dir("/downloads", "https://youtu.be/abc", -1)
	if d1 != d2 {
		t.Errorf("Dir should be stable: %q vs %q", d1, d2)
	}
}

func TestDir_distinct(t *testing.T) {
	a := Dir("/downloads", "https://youtu.be/abc", -1)
	b := Dir("/downloads", "https://youtu.be/abd", -1)
	if a == b {
		t.Error("different URLs should not share a directory")
	}
	item := Dir("/downloads", "https://youtu.be/abc", 2)
	if item == a {
		t.Error("item download should not share the default directory")
	}
	if !strings.HasSuffix(item, "-2") {
		t.Errorf("item dir should carry index suffix: %s", item)
	}
}

func TestDir_sanitized(t *testing.T) {
	d := Dir("/downloads", "https://vk.com/video?z=../../etc", -1)
	if filepath.Dir(d) != "/downloads" {
		t.Errorf("dir escaped download root: %s", d)
	}
	if filepath.Base(Dir("/downloads", "", -1)) != "unknown" {
		t.Error("empty URL should map to unknown")
	}
}
