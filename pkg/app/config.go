package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/argus-vision/go-argus/internal/metrics"
	"github.com/argus-vision/go-argus/pkg/camera"
	"github.com/argus-vision/go-argus/pkg/detect"
	"github.com/argus-vision/go-argus/pkg/render"
	"github.com/argus-vision/go-argus/pkg/track"
	"github.com/argus-vision/go-argus/pkg/voice"
)

// Sentinel errors for pipeline configuration.
var (
	ErrNoSource    = errors.New("app: frame source is required")
	ErrNoServerURL = errors.New("app: backend server URL is required")
)

// Config wires the pipeline together. Source and ServerURL are
// required; everything else has working defaults.
type Config struct {
	// Source produces the frames the pipeline sends for detection.
	Source camera.FrameSource

	// Agent is the voice session. Nil runs the pipeline vision-only.
	Agent voice.Agent

	// ServerURL is the detection backend base URL.
	ServerURL string

	// Token authenticates against the backend. Empty when the
	// backend runs open.
	Token string

	// CaptureInterval is the frame send cadence. The backend sheds
	// frames itself under load, so this only bounds the upper rate.
	CaptureInterval time.Duration

	// Params are the inference parameters attached to every frame.
	Params detect.Params

	// Track is applied to frame-to-frame matching and smoothing.
	Track track.Config

	// Render styles the annotated frames.
	Render render.Config

	// DashboardPort serves the dashboard when non-empty.
	DashboardPort string

	// Metrics receives pipeline counters. Nil gets a private set.
	Metrics *metrics.Metrics

	// Logger is the structured logger. Nil uses slog.Default.
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.CaptureInterval <= 0 {
		c.CaptureInterval = 200 * time.Millisecond
	}
	if c.Params == (detect.Params{}) {
		c.Params = detect.DefaultParams()
	}
	if c.Track == (track.Config{}) {
		c.Track = track.DefaultConfig()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.Source == nil {
		return ErrNoSource
	}
	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	if err := c.Track.Validate(); err != nil {
		return err
	}
	return nil
}
