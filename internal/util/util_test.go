package util

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChunk(t *testing.T) {
	got := Chunk([]int{1, 2, 3, 4, 5}, 2)
	want := [][]int{{1, 2}, {3, 4}, {5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chunk (-want +got):\n%s", diff)
	}
}

func TestIndexBy(t *testing.T) {
	type item struct{ id, label string }
	items := []item{{"a", "first"}, {"b", "second"}, {"a", "third"}}
	got := IndexBy(items, func(i item) string { return i.id })
	if len(got) != 2 || got["a"].label != "third" {
		t.Errorf("IndexBy last-wins: %v", got)
	}

	if _, err := IndexByStrict(items, func(i item) string { return i.id }); err == nil {
		t.Error("IndexByStrict accepted duplicate keys")
	}
}

func TestJSONHashStable(t *testing.T) {
	a, err := JSONHash(map[string]string{"x": "1", "y": "2"}, "suffix")
	if err != nil {
		t.Fatal(err)
	}
	b, err := JSONHash(map[string]string{"y": "2", "x": "1"}, "suffix")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("map key order changed the digest")
	}

	c, err := JSONHash(map[string]string{"x": "1"}, "suffix")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("different inputs collided")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"File Compression":      "file_compression",
		"Structure from Motion": "structure_from_motion",
		"HTML5 Browser":         "html5_browser",
		"Score":                 "score",
		"  spaced  out  ":       "spaced_out",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
