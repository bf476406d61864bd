package camera

import "fmt"

// Config holds device capture parameters.
type Config struct {
	// DeviceID is the OpenCV camera index.
	DeviceID int `json:"device_id"`

	// Width and Height request a capture resolution. The driver may
	// pick the nearest supported mode.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Framerate is the requested capture FPS.
	Framerate int `json:"framerate"`

	// Quality is the JPEG encode quality, 1-100.
	Quality int `json:"quality"`
}

// DefaultConfig returns the recommended capture configuration. The
// detection backend letterboxes frames to its own inference size, so
// 640x480 keeps encode and upload cost low without hurting accuracy.
func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   85,
	}
}

// Validate checks if the config values are within valid ranges.
func (c Config) Validate() error {
	if c.DeviceID < 0 {
		return fmt.Errorf("camera: device ID must not be negative, got %d", c.DeviceID)
	}
	if c.Width < 160 || c.Width > 4096 {
		return fmt.Errorf("camera: width must be between 160 and 4096, got %d", c.Width)
	}
	if c.Height < 120 || c.Height > 2160 {
		return fmt.Errorf("camera: height must be between 120 and 2160, got %d", c.Height)
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		return fmt.Errorf("camera: framerate must be between 1 and 120, got %d", c.Framerate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("camera: quality must be between 1 and 100, got %d", c.Quality)
	}
	return nil
}
