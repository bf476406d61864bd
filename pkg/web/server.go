// Package web serves the local observability dashboard: pipeline
// status and the latest detections over REST, prometheus metrics, and
// two websocket feeds (annotated JPEG frames and JSON events). It
// renders no HTML; any frontend talks to these endpoints.
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/argus-vision/go-argus/internal/metrics"
	"github.com/argus-vision/go-argus/pkg/detect"
	"github.com/argus-vision/go-argus/pkg/hub"
)

// Status is the pipeline state shown on the dashboard. The app mutates
// it through UpdateStatus as the stream and voice session change.
type Status struct {
	StreamConnected bool    `json:"stream_connected"`
	VoiceConnected  bool    `json:"voice_connected"`
	Listening       bool    `json:"listening"`
	BackendFPS      float64 `json:"backend_fps"`
	QueueSize       int     `json:"queue_size"`
	LastScene       string  `json:"last_scene,omitempty"`
	LastSceneAt     string  `json:"last_scene_at,omitempty"`
	LastUserText    string  `json:"last_user_text,omitempty"`
	LastAgentText   string  `json:"last_agent_text,omitempty"`
}

// TrackedSet is the most recent smoothed detection set.
type TrackedSet struct {
	Timestamp  float64            `json:"timestamp"`
	Count      int                `json:"count"`
	Detections []detect.Detection `json:"detections"`
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	started time.Time
	pipe    *metrics.Metrics

	status   Status
	statusMu sync.RWMutex

	latest   TrackedSet
	latestMu sync.RWMutex

	events *hub.Hub
	frames *hub.Hub
}

// NewServer creates the dashboard server on the given port. A nil
// Metrics gets a private instance so the zero-config path still works.
func NewServer(port string, pipe *metrics.Metrics) *Server {
	if pipe == nil {
		pipe = metrics.New()
	}

	s := &Server{
		port:    port,
		logger:  slog.Default().With("component", "web"),
		started: time.Now(),
		pipe:    pipe,
		latest:  TrackedSet{Detections: []detect.Detection{}},
		events:  hub.New("events"),
		frames:  hub.New("frames"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "argus dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local frontends served from another port.
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/detections", s.handleDetections)

	app.Get("/metrics", adaptor.HTTPHandler(pipe.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Start runs the hubs and serves until Shutdown. Blocks.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", "http://localhost:"+s.port)

	go s.events.Run()
	go s.frames.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync runs Start in a goroutine and logs a failure to serve.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server failed", "error", err)
		}
	}()
}

// Shutdown stops the server and disconnects all feed clients.
func (s *Server) Shutdown() error {
	s.events.Stop()
	s.frames.Stop()
	return s.app.Shutdown()
}

// UpdateStatus applies a mutation to the pipeline status and pushes the
// result to event feed subscribers.
func (s *Server) UpdateStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	snapshot := s.status
	s.statusMu.Unlock()

	s.events.BroadcastEvent(hub.EventStatus, snapshot)
}

// SetDetections stores the latest tracked set and pushes it to event
// feed subscribers.
func (s *Server) SetDetections(timestamp float64, dets []detect.Detection) {
	set := TrackedSet{Timestamp: timestamp, Count: len(dets), Detections: dets}
	if set.Detections == nil {
		set.Detections = []detect.Detection{}
	}

	s.latestMu.Lock()
	s.latest = set
	s.latestMu.Unlock()

	s.events.BroadcastEvent(hub.EventDetections, set)
}

// PublishEvent pushes an arbitrary dashboard event to the event feed.
func (s *Server) PublishEvent(eventType string, data any) {
	s.events.BroadcastEvent(eventType, data)
}

// PublishFrame pushes an annotated JPEG to frame feed subscribers.
func (s *Server) PublishFrame(jpeg []byte) {
	s.frames.BroadcastBinary(jpeg)
}
