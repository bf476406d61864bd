package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"
)

// Static produces synthetic frames: a dark background with a block
// that moves a little every capture, so consecutive frames differ and
// the full pipeline can run without any hardware.
type Static struct {
	mu      sync.Mutex
	width   int
	height  int
	quality int
	tick    int
	closed  bool
}

// NewStatic creates a synthetic source. Dimensions below 64x64 are
// raised to keep the moving block drawable.
func NewStatic(width, height int) *Static {
	if width < 64 {
		width = 64
	}
	if height < 64 {
		height = 64
	}
	return &Static{
		width:   width,
		height:  height,
		quality: DefaultConfig().Quality,
	}
}

// CaptureJPEG renders and encodes the next synthetic frame.
func (s *Static) CaptureJPEG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	bg := color.RGBA{R: 24, G: 26, B: 32, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	size := s.width / 8
	x := (s.tick * 7) % (s.width - size)
	y := (s.tick * 3) % (s.height - size)
	block := image.Rect(x, y, x+size, y+size)
	fg := color.RGBA{R: 200, G: 80, B: 40, A: 255}
	draw.Draw(img, block, &image.Uniform{C: fg}, image.Point{}, draw.Src)
	s.tick++

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("camera: encode synthetic frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Close stops the source.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ FrameSource = (*Static)(nil)
