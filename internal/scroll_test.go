package internal

import "testing"

func TestViewportNearBottom(t *testing.T) {
	tests := []struct {
		name string
		v    Viewport
		want bool
	}{
		{"at bottom", Viewport{Offset: 500, Height: 500, ContentHeight: 1000}, true},
		{"exactly threshold", Viewport{Offset: 400, Height: 500, ContentHeight: 1000}, true},
		{"just past threshold", Viewport{Offset: 399, Height: 500, ContentHeight: 1000}, false},
		{"scrolled to top", Viewport{Offset: 0, Height: 300, ContentHeight: 2000}, false},
		{"content shorter than view", Viewport{Offset: 0, Height: 500, ContentHeight: 200}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.NearBottom(); got != tt.want {
				t.Errorf("NearBottom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScrollTracker(t *testing.T) {
	far := Viewport{Offset: 0, Height: 300, ContentHeight: 2000}
	near := Viewport{Offset: 1700, Height: 300, ContentHeight: 2000}

	var s ScrollTracker
	if !s.ShouldScroll(3, far) {
		t.Error("first population should scroll even when far from bottom")
	}
	if s.ShouldScroll(4, far) {
		t.Error("new message while reading history should not scroll")
	}
	if !s.ShouldScroll(5, near) {
		t.Error("new message near bottom should scroll")
	}
	if s.ShouldScroll(5, near) {
		t.Error("no new messages, no scroll")
	}

	s.Reset()
	if !s.ShouldScroll(1, far) {
		t.Error("after reset the next population scrolls")
	}
}

func TestScrollTrackerEmpty(t *testing.T) {
	var s ScrollTracker
	if s.ShouldScroll(0, Viewport{}) {
		t.Error("empty transcript should not scroll")
	}
}
