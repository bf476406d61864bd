package track

import "fmt"

// Config holds the tunables for frame-to-frame detection tracking.
type Config struct {
	// IoUThreshold is the minimum overlap, exclusive, for a previous
	// detection to count as the same object. Matches at or below this
	// value are rejected so that two spatially unrelated objects of
	// the same class never smooth into each other.
	IoUThreshold float64

	// SmoothingFactor is the interpolation weight toward the current
	// raw box. Lower values hold boxes steadier, 1 disables smoothing
	// entirely.
	SmoothingFactor float64

	// NewOpacity is assigned to detections that matched nothing in
	// the previous frame, so the renderer can fade new objects in.
	NewOpacity float64
}

// DefaultConfig returns the stock tracking parameters.
func DefaultConfig() Config {
	return Config{
		IoUThreshold:    0.3,
		SmoothingFactor: 0.3,
		NewOpacity:      0.5,
	}
}

// Validate checks that all configuration values are usable.
func (c Config) Validate() error {
	if c.IoUThreshold < 0 || c.IoUThreshold >= 1 {
		return fmt.Errorf("track: IoU threshold must be in [0, 1), got %v", c.IoUThreshold)
	}
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		return fmt.Errorf("track: smoothing factor must be in (0, 1], got %v", c.SmoothingFactor)
	}
	if c.NewOpacity < 0 || c.NewOpacity > 1 {
		return fmt.Errorf("track: new-detection opacity must be in [0, 1], got %v", c.NewOpacity)
	}
	return nil
}
