package ui

import (
	"errors"
	"testing"

	"cexplorer/internal/api"
	"cexplorer/internal/catalog"
	"cexplorer/internal/render"
)

func renderModel(res api.CompileResult) (render.Model, error) { return render.Render(res) }

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a longer name", 10, "a lo..."},
		{"abcdef", 3, "abc"},
		{"漢字漢字漢字", 10, "漢字..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestProgressTracksLanguages(t *testing.T) {
	events := make(chan catalog.PrefetchEvent)
	m := NewProgressModel("prefetch", []string{"c", "c++"}, events).(*progressModel)
	m.applyEvent(catalog.PrefetchEvent{Language: "c", Listing: catalog.ListingCompilers})
	m.applyEvent(catalog.PrefetchEvent{Language: "c", Listing: catalog.ListingLibraries})
	m.applyEvent(catalog.PrefetchEvent{Language: "c++", Listing: catalog.ListingCompilers, Err: errors.New("offline")})
	if m.items[0].status() != "done" || m.items[1].status() != "error" {
		t.Fatalf("unexpected statuses %q %q", m.items[0].status(), m.items[1].status())
	}
}
