package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os/exec"
	"sync"
	"time"

	"github.com/iksnae/medisnap/internal"
)

// JPEGQuality is the fixed encoding quality of camera captures.
const JPEGQuality = 95

const (
	msgCameraUnavailable = "Camera access is not available on this device."
	msgPermissionDenied  = "Camera permission denied. Please allow camera access."
	msgPreviewFailed     = "Unable to start the camera preview. Please allow camera permissions."
)

var (
	// ErrCameraBusy is returned when Open or Capture races another Open.
	ErrCameraBusy = errors.New("camera is busy")
	// ErrNotLive is returned by Preview and Capture without an open stream.
	ErrNotLive = errors.New("camera is not live")
	// ErrCameraClosed is returned by an Open that was overtaken by Close.
	ErrCameraClosed = errors.New("camera closed while opening")
)

// State is the camera lifecycle phase.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateLive
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateLive:
		return "live"
	case StateCapturing:
		return "capturing"
	}
	return "unknown"
}

// CameraOption configures a Camera.
type CameraOption func(*Camera)

// WithConstraints overrides DefaultConstraints.
func WithConstraints(c Constraints) CameraOption {
	return func(cam *Camera) { cam.constraints = c }
}

// WithPreviewTimeout bounds how long Preview and Capture wait for a first
// frame.
func WithPreviewTimeout(d time.Duration) CameraOption {
	return func(cam *Camera) { cam.previewTimeout = d }
}

// WithClock overrides the clock used to name captures.
func WithClock(now func() time.Time) CameraOption {
	return func(cam *Camera) { cam.now = now }
}

// Camera is a scoped handle on a Device. Every track of an opened stream is
// stopped by Close, which callers must reach on every path.
type Camera struct {
	device         Device
	constraints    Constraints
	previewTimeout time.Duration
	pollInterval   time.Duration
	now            func() time.Time

	mu     sync.Mutex
	state  State
	stream Stream
	gen    uint64 // bumped by Close so a pending Open can tell it was overtaken
}

// NewCamera wraps device. A nil device makes every Open fail with
// DeviceUnavailable.
func NewCamera(device Device, opts ...CameraOption) *Camera {
	c := &Camera{
		device:         device,
		constraints:    DefaultConstraints(),
		previewTimeout: 5 * time.Second,
		pollInterval:   20 * time.Millisecond,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current phase.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open acquires the device. Opening an already live camera returns the
// existing stream.
func (c *Camera) Open(ctx context.Context) (Stream, error) {
	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return nil, internal.NewError(internal.KindDeviceUnavailable, "camera", msgCameraUnavailable, nil)
	}
	switch c.state {
	case StateLive:
		s := c.stream
		c.mu.Unlock()
		return s, nil
	case StateOpening, StateCapturing:
		c.mu.Unlock()
		return nil, ErrCameraBusy
	}
	c.state = StateOpening
	gen := c.gen
	c.mu.Unlock()

	stream, err := c.device.Open(ctx, c.constraints)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// Close ran while the device was opening
		if stream != nil {
			stopTracks(stream)
		}
		return nil, ErrCameraClosed
	}
	if err != nil {
		c.state = StateClosed
		return nil, classifyDeviceError(err)
	}
	c.state = StateLive
	c.stream = stream
	internal.LogDebug("camera live (%dx%d, facing %s)", c.constraints.Width, c.constraints.Height, c.constraints.FacingMode)
	return stream, nil
}

// Preview returns the latest frame, waiting up to the preview timeout for the
// first one.
func (c *Camera) Preview(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	if c.state != StateLive {
		c.mu.Unlock()
		return nil, ErrNotLive
	}
	stream := c.stream
	c.mu.Unlock()
	return c.awaitFrame(ctx, stream)
}

// Capture rasterizes the current frame as JPEG and releases the camera. On
// failure the camera stays live so the user can try again.
func (c *Camera) Capture(ctx context.Context) (*internal.CapturedDocument, error) {
	c.mu.Lock()
	switch c.state {
	case StateLive:
	case StateOpening, StateCapturing:
		c.mu.Unlock()
		return nil, ErrCameraBusy
	default:
		c.mu.Unlock()
		return nil, ErrNotLive
	}
	c.state = StateCapturing
	stream := c.stream
	c.mu.Unlock()

	doc, err := c.encode(ctx, stream)
	if err != nil {
		c.mu.Lock()
		if c.state == StateCapturing {
			c.state = StateLive
		}
		c.mu.Unlock()
		return nil, err
	}
	c.Close()
	return doc, nil
}

func (c *Camera) encode(ctx context.Context, stream Stream) (*internal.CapturedDocument, error) {
	frame, err := c.awaitFrame(ctx, stream)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	name := fmt.Sprintf("medical-document-%d.jpg", c.now().UnixMilli())
	data := buf.Bytes()
	doc := internal.NewCapturedDocument(name, "image/jpeg", internal.SourceCamera, data)
	return doc.WithPreview(DataURI("image/jpeg", data)), nil
}

func (c *Camera) awaitFrame(ctx context.Context, stream Stream) (image.Image, error) {
	deadline := time.NewTimer(c.previewTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(c.pollInterval)
	defer tick.Stop()

	for {
		frame, err := stream.Frame()
		if err == nil && frame != nil {
			return frame, nil
		}
		if err != nil && !errors.Is(err, ErrNoFrame) {
			return nil, internal.NewError(internal.KindPreviewStartFailed, "camera", msgPreviewFailed, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, internal.NewError(internal.KindPreviewStartFailed, "camera", msgPreviewFailed, ErrNoFrame)
		case <-tick.C:
		}
	}
}

// Close stops every track and returns the camera to Closed. It is safe to
// call at any time and more than once.
func (c *Camera) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.stream != nil {
		stopTracks(c.stream)
		c.stream = nil
		internal.LogDebug("camera released")
	}
	c.state = StateClosed
}

func stopTracks(s Stream) {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// WithCamera opens a camera on device, runs fn and always releases the
// camera, whatever fn does.
func WithCamera(ctx context.Context, device Device, fn func(*Camera) error, opts ...CameraOption) error {
	cam := NewCamera(device, opts...)
	defer cam.Close()
	if _, err := cam.Open(ctx); err != nil {
		return err
	}
	return fn(cam)
}

// CaptureOnce opens the camera, waits for a frame and captures it.
func CaptureOnce(ctx context.Context, device Device, opts ...CameraOption) (*internal.CapturedDocument, error) {
	var doc *internal.CapturedDocument
	err := WithCamera(ctx, device, func(cam *Camera) error {
		if _, err := cam.Preview(ctx); err != nil {
			return err
		}
		var err error
		doc, err = cam.Capture(ctx)
		return err
	}, opts...)
	return doc, err
}

func classifyDeviceError(err error) error {
	if internal.KindOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return internal.NewError(internal.KindPermissionDenied, "camera", msgPermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, exec.ErrNotFound):
		return internal.NewError(internal.KindDeviceUnavailable, "camera", msgCameraUnavailable, err)
	}
	return internal.NewError(internal.KindPreviewStartFailed, "camera", msgPreviewFailed, err)
}
