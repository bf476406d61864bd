package camera

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Files replays images from a directory in filename order, looping
// forever. JPEG files pass through untouched; PNG files are decoded
// and re-encoded. Useful for development and recorded test footage.
type Files struct {
	mu      sync.Mutex
	paths   []string
	next    int
	quality int
	closed  bool
}

// OpenFiles scans dir for images and returns a looping replay source.
func OpenFiles(dir string, quality int) (*Files, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultConfig().Quality
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("camera: scan %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("camera: no images in %s", dir)
	}

	return &Files{paths: paths, quality: quality}, nil
}

// CaptureJPEG returns the next image in the loop as JPEG bytes.
func (f *Files) CaptureJPEG() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	path := f.paths[f.next]
	f.next = (f.next + 1) % len(f.paths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("camera: read %s: %w", path, err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".png" {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("camera: decode %s: %w", path, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: f.quality}); err != nil {
			return nil, fmt.Errorf("camera: encode %s: %w", path, err)
		}
		return buf.Bytes(), nil
	}
	return data, nil
}

// Close stops the replay.
func (f *Files) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ FrameSource = (*Files)(nil)
