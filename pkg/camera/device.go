package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Device captures frames from a local camera through OpenCV.
type Device struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	buf    gocv.Mat
	params []int
}

// OpenDevice opens the camera identified by cfg.DeviceID and applies
// the requested capture mode.
func OpenDevice(cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", cfg.DeviceID, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Device{
		cap:    cap,
		buf:    gocv.NewMat(),
		params: []int{gocv.IMWriteJpegQuality, cfg.Quality},
	}, nil
}

// CaptureJPEG grabs one frame and encodes it as JPEG.
func (d *Device) CaptureJPEG() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cap == nil {
		return nil, ErrClosed
	}
	if ok := d.cap.Read(&d.buf); !ok {
		return nil, ErrNoFrame
	}
	if d.buf.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, d.buf, d.params)
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer dies with Close, so copy out.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device and the capture buffer.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cap == nil {
		return nil
	}
	err := d.cap.Close()
	d.buf.Close()
	d.cap = nil
	return err
}

var _ FrameSource = (*Device)(nil)
