package stream

import (
	"log/slog"
	"time"

	"github.com/argus-vision/go-argus/pkg/detect"
)

// Config holds configuration for the detection stream client.
type Config struct {
	// ServerURL is the backend base URL, http(s) or ws(s) scheme.
	// The /ws/detect path is appended when the URL has no path.
	ServerURL string

	// Token authenticates the socket when the backend requires it.
	// Leave empty for backends running without auth.
	Token string

	// Params are the inference parameters attached to every frame.
	// They can be changed later with UpdateParams.
	Params detect.Params

	// Timeout is the dial and auth handshake timeout.
	Timeout time.Duration

	// ReadTimeout is the per-message read deadline. The backend sends
	// a reply for every frame, so a quiet socket means a dead one.
	ReadTimeout time.Duration

	// WriteTimeout is the per-message write deadline.
	WriteTimeout time.Duration

	// AutoReconnect re-dials after the connection drops.
	AutoReconnect bool

	// ReconnectDelay is the fixed pause between reconnect attempts.
	ReconnectDelay time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Params:         detect.DefaultParams(),
		Timeout:        10 * time.Second,
		ReadTimeout:    time.Minute,
		WriteTimeout:   10 * time.Second,
		AutoReconnect:  true,
		ReconnectDelay: 2 * time.Second,
		Logger:         slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrMissingServerURL
	}
	return nil
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithToken sets the auth token sent after dialing.
func WithToken(token string) Option {
	return func(c *Config) {
		c.Token = token
	}
}

// WithParams sets the initial inference parameters.
func WithParams(p detect.Params) Option {
	return func(c *Config) {
		c.Params = p
	}
}

// WithTimeout sets the dial and handshake timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithReadTimeout sets the per-message read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithAutoReconnect enables or disables automatic reconnection.
func WithAutoReconnect(enabled bool) Option {
	return func(c *Config) {
		c.AutoReconnect = enabled
	}
}

// WithReconnectDelay sets the pause between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Config) {
		c.ReconnectDelay = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
