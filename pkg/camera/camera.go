// Package camera provides frame sources for the detection pipeline:
// a real device through OpenCV, an image-directory replay source, and
// a synthetic source for running without hardware. All sources hand
// out encoded JPEG frames, which is what the detection stream sends.
package camera

import "errors"

// FrameSource produces encoded JPEG frames on demand.
type FrameSource interface {
	// CaptureJPEG grabs the next frame as encoded JPEG bytes.
	CaptureJPEG() ([]byte, error)

	// Close releases the underlying resource.
	Close() error
}

// Sentinel errors for the camera package.
var (
	// ErrClosed indicates the source was already closed.
	ErrClosed = errors.New("camera: source closed")

	// ErrNoFrame indicates the device produced no frame.
	ErrNoFrame = errors.New("camera: no frame available")
)
