package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

type fakeTrack struct {
	stopped atomic.Int32
}

func (t *fakeTrack) Stop() { t.stopped.Add(1) }

type fakeStream struct {
	mu     sync.Mutex
	frame  image.Image
	err    error
	tracks []*fakeTrack
}

func newFakeStream(frame image.Image) *fakeStream {
	return &fakeStream{frame: frame, tracks: []*fakeTrack{{}, {}}}
}

func (s *fakeStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

func (s *fakeStream) setFrame(img image.Image) {
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func (s *fakeStream) allStopped() bool {
	for _, t := range s.tracks {
		if t.stopped.Load() == 0 {
			return false
		}
	}
	return true
}

type fakeDevice struct {
	stream *fakeStream
	err    error
	gate   chan struct{} // when set, Open blocks until closed
	opens  atomic.Int32
	got    Constraints
}

func (d *fakeDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.opens.Add(1)
	d.got = c
	if d.gate != nil {
		<-d.gate
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	return img
}
