package capture

import (
	"context"
	"errors"
	"image"
)

// FacingEnvironment asks for the rear camera on devices that have one.
const FacingEnvironment = "environment"

// Constraints describe the stream requested from a device.
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
}

// DefaultConstraints is the rear camera at 1280x720.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: FacingEnvironment, Width: 1280, Height: 720}
}

// ErrNoFrame is returned by Stream.Frame before the first frame arrives.
var ErrNoFrame = errors.New("no frame available yet")

// Device opens video streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video feed.
type Stream interface {
	// Frame returns the most recent frame.
	Frame() (image.Image, error)
	Tracks() []Track
}

// Track is one media track of a stream. Stop releases the hardware and may
// be called more than once.
type Track interface {
	Stop()
}
