package media

import "testing"

func TestClone_noAliasing(t *testing.T) {
	a := Artifact{
		SourceURL: "https://www.youtube.com/playlist?list=x",
		Kind:      KindVideo,
		Items:     []Ref{{Index: 0, Title: "one"}, {Index: 1, Title: "two"}},
	}
	b := a.Clone()
	b.Items[0].Title = "changed"
	if a.Items[0].Title != "one" {
		t.Errorf("clone aliases Items: original title = %q", a.Items[0].Title)
	}
}

func TestIsContainer(t *testing.T) {
	if (Artifact{}).IsContainer() {
		t.Error("empty Items should not be a container")
	}
	if !(Artifact{Items: []Ref{{}}}).IsContainer() {
		t.Error("non-empty Items should be a container")
	}
}
