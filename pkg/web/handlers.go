package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/argus-vision/go-argus/internal/metrics"
	"github.com/argus-vision/go-argus/pkg/hub"
)

// statusResponse flattens Status and adds request-time figures.
type statusResponse struct {
	Status
	UptimeSeconds int64            `json:"uptime_seconds"`
	EventClients  int              `json:"event_clients"`
	FrameClients  int              `json:"frame_clients"`
	Pipeline      metrics.Snapshot `json:"pipeline"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	snapshot := s.status
	s.statusMu.RUnlock()

	return c.JSON(statusResponse{
		Status:        snapshot,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		EventClients:  s.events.ClientCount(),
		FrameClients:  s.frames.ClientCount(),
		Pipeline:      s.pipe.Snapshot(),
	})
}

func (s *Server) handleDetections(c *fiber.Ctx) error {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return c.JSON(s.latest)
}

// handleEventsWS serves the JSON event feed. New subscribers get a
// status snapshot first so they do not render blank until the next
// state change.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.statusMu.RLock()
	snapshot := s.status
	s.statusMu.RUnlock()
	c.WriteJSON(hub.NewEvent(hub.EventStatus, snapshot))

	client := hub.NewClient(s.events, c)
	client.Run()
}

// handleFramesWS serves the binary annotated-JPEG feed.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	client := hub.NewClient(s.frames, c)
	client.Run()
}
