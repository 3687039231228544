package captions

import (
	"reflect"
	"testing"
)

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		in   string
		want Anchor
	}{
		{"center", Anchor{Kind: AnchorKeyword, Keyword: "center"}},
		{" Bottom ", Anchor{Kind: AnchorKeyword, Keyword: "bottom"}},
		{"0.85", Anchor{Kind: AnchorFraction, Value: 0.85}},
		{"120", Anchor{Kind: AnchorPixels, Value: 120}},
		{"", Anchor{Kind: AnchorKeyword, Keyword: "center"}},
	}
	for _, tc := range tests {
		got, err := ParseAnchor(tc.in)
		if err != nil {
			t.Fatalf("ParseAnchor(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAnchor(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"middle", "-3"} {
		if _, err := ParseAnchor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestWrap(t *testing.T) {
	// 864px box at 72px font fits 21 characters per line.
	got := Wrap("THIS IS A VERY LONG CAPTION LINE", 864, 72)
	want := []string{"THIS IS A VERY LONG", "CAPTION LINE"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected wrap: %q", got)
	}
	if got := Wrap("SHORT", 864, 72); !reflect.DeepEqual(got, []string{"SHORT"}) {
		t.Fatalf("unexpected wrap for short text: %q", got)
	}
	if got := Wrap("   ", 864, 72); got != nil {
		t.Fatalf("expected nil for blank text, got %q", got)
	}
}
