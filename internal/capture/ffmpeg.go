package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/iksnae/medisnap/internal"
)

// DefaultVideoDevice is the first V4L2 node.
const DefaultVideoDevice = "/dev/video0"

const maxFrameSize = 8 * 1024 * 1024

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegDevice reads a V4L2 camera through an ffmpeg child process that emits
// an MJPEG stream on stdout.
type FFmpegDevice struct {
	Path   string // device node, DefaultVideoDevice when empty
	Binary string // ffmpeg executable, "ffmpeg" when empty
}

func (d *FFmpegDevice) path() string {
	if d.Path == "" {
		return DefaultVideoDevice
	}
	return d.Path
}

func (d *FFmpegDevice) binary() string {
	if d.Binary == "" {
		return "ffmpeg"
	}
	return d.Binary
}

// Probe checks that ffmpeg and the device node exist and can be opened,
// without starting a stream.
func (d *FFmpegDevice) Probe() error {
	if _, err := exec.LookPath(d.binary()); err != nil {
		return classifyDeviceError(err)
	}
	f, err := os.Open(d.path())
	if err != nil {
		return classifyDeviceError(err)
	}
	return f.Close()
}

// Open starts ffmpeg. The stream lives until its track is stopped; ctx only
// bounds the start.
func (d *FFmpegDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.Probe(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, d.binary(),
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-i", d.path(),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, classifyDeviceError(err)
	}
	internal.LogDebug("ffmpeg started for %s (pid %d)", d.path(), cmd.Process.Pid)

	s := &ffmpegStream{cmd: cmd, cancel: cancel, done: make(chan struct{})}
	go s.read(stdout)
	return s, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	stop   sync.Once

	mu     sync.Mutex
	latest []byte
	err    error
}

func (s *ffmpegStream) read(r io.Reader) {
	defer close(s.done)
	sc := NewFrameScanner(r)
	for sc.Scan() {
		frame := append([]byte(nil), sc.Bytes()...)
		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
	}
	s.mu.Lock()
	if err := sc.Err(); err != nil {
		s.err = err
	} else {
		s.err = io.EOF
	}
	s.mu.Unlock()
}

func (s *ffmpegStream) Frame() (image.Image, error) {
	s.mu.Lock()
	latest, err := s.latest, s.err
	s.mu.Unlock()
	// a frame left over from a dead stream is stale
	if err != nil {
		return nil, fmt.Errorf("camera stream ended: %w", err)
	}
	if latest == nil {
		return nil, ErrNoFrame
	}
	return jpeg.Decode(bytes.NewReader(latest))
}

func (s *ffmpegStream) Tracks() []Track {
	return []Track{s}
}

// Stop kills ffmpeg and waits for the reader to drain.
func (s *ffmpegStream) Stop() {
	s.stop.Do(func() {
		s.cancel()
		<-s.done
		_ = s.cmd.Wait()
	})
}

// NewFrameScanner splits a concatenated MJPEG stream into JPEG images.
func NewFrameScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	sc.Split(splitJPEG)
	return sc
}

func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// keep a trailing 0xFF that may begin the next marker
		if n := len(data); n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
