package internal

// NearBottomThreshold is how close to the end (in view units) the reader must
// be for new messages to pull the view down.
const NearBottomThreshold = 100

// Viewport describes the scroll position of a transcript view.
type Viewport struct {
	Offset        int // top of the visible window
	Height        int // visible height
	ContentHeight int // total content height
}

// NearBottom reports whether the visible window ends within the threshold.
func (v Viewport) NearBottom() bool {
	return v.ContentHeight-(v.Offset+v.Height) <= NearBottomThreshold
}

// ScrollTracker decides when a view should jump to the newest message.
type ScrollTracker struct {
	lastCount int
}

// ShouldScroll is called after every transcript change with the new message
// count. It scrolls on the first population, or when messages were added and
// the reader is near the bottom.
func (s *ScrollTracker) ShouldScroll(count int, v Viewport) bool {
	prev := s.lastCount
	s.lastCount = count
	if count <= prev {
		return false
	}
	return prev == 0 || v.NearBottom()
}

// Reset forgets the last count, as when a transcript is replaced.
func (s *ScrollTracker) Reset() {
	s.lastCount = 0
}
