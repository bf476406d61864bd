package voice

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/argus-vision/go-argus/internal/httpc"
)

// Realtime API defaults. The backend mints ephemeral keys for the same
// model and voice, so these only matter for the calls endpoint query
// and the session.update sent on connect.
const (
	DefaultRealtimeURL = "https://api.openai.com/v1/realtime"
	DefaultModel       = "gpt-realtime"
	DefaultVoice       = VoiceCedar
)

// Realtime voices.
const (
	VoiceCedar   = "cedar"
	VoiceMarin   = "marin"
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceShimmer = "shimmer"
)

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	// Type is the VAD mode, normally "server_vad".
	Type string `json:"type"`

	// Threshold is the VAD sensitivity (0.0-1.0).
	Threshold float64 `json:"threshold,omitempty"`

	// PrefixPaddingMS is audio included before detected speech.
	PrefixPaddingMS int `json:"prefix_padding_ms,omitempty"`

	// SilenceDurationMS is how long silence ends a turn.
	SilenceDurationMS int `json:"silence_duration_ms,omitempty"`
}

// Config holds configuration for a realtime voice session.
type Config struct {
	// RealtimeURL is the base URL of the realtime API.
	RealtimeURL string

	// Model is the realtime model requested on the calls endpoint.
	Model string

	// Voice is the agent's speaking voice.
	Voice string

	// Instructions is the system prompt for the session.
	Instructions string

	// TranscriptionModel transcribes the user's speech.
	TranscriptionModel string

	// TurnDetection configures voice activity detection.
	TurnDetection *TurnDetection

	// Tools available to the agent from the start of the session.
	// More can be added with RegisterTool before Connect.
	Tools []Tool

	// Timeout bounds the token fetch and the SDP exchange.
	Timeout time.Duration

	// HTTPClient performs the token and SDP requests.
	HTTPClient *http.Client

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RealtimeURL:        DefaultRealtimeURL,
		Model:              DefaultModel,
		Voice:              DefaultVoice,
		TranscriptionModel: "whisper-1",
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMS:   300,
			SilenceDurationMS: 500,
		},
		Timeout:    30 * time.Second,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
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
	if c.RealtimeURL == "" {
		return ErrMissingRealtimeURL
	}
	if c.Model == "" {
		return ErrMissingModel
	}
	return nil
}

// Option is a functional option for configuring a session.
type Option func(*Config)

// WithRealtimeURL overrides the realtime API endpoint.
func WithRealtimeURL(url string) Option {
	return func(c *Config) {
		c.RealtimeURL = url
	}
}

// WithModel sets the realtime model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithVoice sets the agent's voice.
func WithVoice(voice string) Option {
	return func(c *Config) {
		c.Voice = voice
	}
}

// WithInstructions sets the system prompt.
func WithInstructions(instructions string) Option {
	return func(c *Config) {
		c.Instructions = instructions
	}
}

// WithTranscriptionModel sets the speech transcription model.
func WithTranscriptionModel(model string) Option {
	return func(c *Config) {
		c.TranscriptionModel = model
	}
}

// WithTurnDetection configures voice activity detection.
func WithTurnDetection(td *TurnDetection) Option {
	return func(c *Config) {
		c.TurnDetection = td
	}
}

// WithTools sets the tools available at session start.
func WithTools(tools ...Tool) Option {
	return func(c *Config) {
		c.Tools = tools
	}
}

// WithTimeout bounds the connection handshake.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithHTTPClient sets the client for token and SDP requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
