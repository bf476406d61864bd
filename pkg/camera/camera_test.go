package camera

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative device", func(c *Config) { c.DeviceID = -1 }, true},
		{"tiny width", func(c *Config) { c.Width = 10 }, true},
		{"huge height", func(c *Config) { c.Height = 9999 }, true},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }, true},
		{"quality over 100", func(c *Config) { c.Quality = 101 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStaticCapture(t *testing.T) {
	s := NewStatic(320, 240)
	defer s.Close()

	first, err := s.CaptureJPEG()
	if err != nil {
		t.Fatalf("CaptureJPEG() error = %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("frame is not valid JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("frame size = %dx%d, want 320x240", b.Dx(), b.Dy())
	}

	second, err := s.CaptureJPEG()
	if err != nil {
		t.Fatalf("CaptureJPEG() error = %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("consecutive synthetic frames should differ")
	}
}

func TestStaticClosed(t *testing.T) {
	s := NewStatic(64, 64)
	s.Close()
	if _, err := s.CaptureJPEG(); !errors.Is(err, ErrClosed) {
		t.Errorf("CaptureJPEG() after Close error = %v, want ErrClosed", err)
	}
}

func TestStaticMinimumSize(t *testing.T) {
	s := NewStatic(1, 1)
	defer s.Close()
	frame, err := s.CaptureJPEG()
	if err != nil {
		t.Fatalf("CaptureJPEG() error = %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("frame is not valid JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() < 64 || b.Dy() < 64 {
		t.Errorf("frame size = %dx%d, want at least 64x64", b.Dx(), b.Dy())
	}
}

func writeTestImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	var err error
	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFilesReplay(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.jpg"))
	writeTestImage(t, filepath.Join(dir, "b.png"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFiles(dir, 85)
	if err != nil {
		t.Fatalf("OpenFiles() error = %v", err)
	}
	defer f.Close()

	// Two images, so the third capture wraps back to the first.
	var frames [][]byte
	for i := 0; i < 3; i++ {
		frame, err := f.CaptureJPEG()
		if err != nil {
			t.Fatalf("CaptureJPEG() #%d error = %v", i, err)
		}
		if _, err := jpeg.Decode(bytes.NewReader(frame)); err != nil {
			t.Fatalf("frame #%d is not valid JPEG: %v", i, err)
		}
		frames = append(frames, frame)
	}
	if !bytes.Equal(frames[0], frames[2]) {
		t.Error("replay should loop back to the first image")
	}
}

func TestFilesEmptyDir(t *testing.T) {
	if _, err := OpenFiles(t.TempDir(), 85); err == nil {
		t.Error("OpenFiles() on an empty directory should fail")
	}
}

func TestFilesClosed(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.jpg"))

	f, err := OpenFiles(dir, 85)
	if err != nil {
		t.Fatalf("OpenFiles() error = %v", err)
	}
	f.Close()
	if _, err := f.CaptureJPEG(); !errors.Is(err, ErrClosed) {
		t.Errorf("CaptureJPEG() after Close error = %v, want ErrClosed", err)
	}
}
