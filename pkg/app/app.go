// Package app assembles the full pipeline: frames go from the camera
// to the detection stream, results come back through tracking and
// rendering, and everything observable fans out to the dashboard and
// the voice agent.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/argus-vision/go-argus/internal/metrics"
	"github.com/argus-vision/go-argus/pkg/camera"
	"github.com/argus-vision/go-argus/pkg/detect"
	"github.com/argus-vision/go-argus/pkg/hub"
	"github.com/argus-vision/go-argus/pkg/render"
	"github.com/argus-vision/go-argus/pkg/stream"
	"github.com/argus-vision/go-argus/pkg/track"
	"github.com/argus-vision/go-argus/pkg/voice"
	"github.com/argus-vision/go-argus/pkg/web"
)

// statusRefresh throttles backend fps/queue pushes to the dashboard.
// Detections already flow per frame; status is a slower heartbeat.
const statusRefresh = 2 * time.Second

// App owns the pipeline components and their lifecycle.
type App struct {
	cfg    Config
	logger *slog.Logger
	pipe   *metrics.Metrics

	source    camera.FrameSource
	stream    *stream.Client
	tracker   *track.Tracker
	annotator *render.Annotator
	agent     voice.Agent
	server    *web.Server

	// lastFrame is the most recently sent JPEG. Results annotate it;
	// at pipeline rates it is the frame the result belongs to, or its
	// immediate successor, and smoothing absorbs the difference.
	frameMu   sync.RWMutex
	lastFrame []byte

	// Published outputs, read by voice tools and embedders.
	outMu         sync.RWMutex
	lastTracked   []detect.Detection
	lastAnnotated []byte
	lastScene     string
	lastSceneAt   time.Time

	highlightMu sync.RWMutex
	highlight   string

	// resetPending defers tracker resets into the result path, which
	// is the tracker's only caller. Reconnect notifications arrive on
	// a different goroutine and must not touch it directly.
	resetPending atomic.Bool

	// lastStatusPush is only touched by the result path.
	lastStatusPush time.Time

	closeOnce sync.Once
}

// New builds the pipeline from a config. Nothing connects until Run.
func New(cfg Config) (*App, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tracker, err := track.New(cfg.Track)
	if err != nil {
		return nil, fmt.Errorf("app: tracker: %w", err)
	}

	sc, err := stream.NewClient(cfg.ServerURL,
		stream.WithToken(cfg.Token),
		stream.WithParams(cfg.Params),
		stream.WithLogger(cfg.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("app: stream client: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "app"),
		pipe:      cfg.Metrics,
		source:    cfg.Source,
		stream:    sc,
		tracker:   tracker,
		annotator: render.New(cfg.Render),
		agent:     cfg.Agent,
	}

	if cfg.DashboardPort != "" {
		a.server = web.NewServer(cfg.DashboardPort, a.pipe)
	}

	a.stream.OnResult(a.handleResult)
	a.stream.OnScene(a.handleScene)
	a.stream.OnSkipped(a.handleSkip)
	a.stream.OnError(a.handleStreamError)
	a.stream.OnReconnect(a.handleReconnect)

	if a.agent != nil {
		for _, tool := range a.voiceTools() {
			a.agent.RegisterTool(tool)
		}
		a.agent.OnTranscript(a.handleTranscript)
		a.agent.OnToolCall(a.handleToolCall)
		a.agent.OnSpeechStarted(func() { a.setListening(true) })
		a.agent.OnSpeechStopped(func() { a.setListening(false) })
		a.agent.OnError(func(err error) {
			a.logger.Error("voice session error", "error", err)
		})
	}

	return a, nil
}

// Run connects everything and drives the capture loop until the
// context is cancelled. A voice connect failure degrades to
// vision-only rather than stopping the pipeline.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting pipeline",
		"backend", a.cfg.ServerURL,
		"interval", a.cfg.CaptureInterval,
		"voice", a.agent != nil,
	)

	if a.server != nil {
		a.server.StartAsync()
	}

	if err := a.stream.Connect(ctx); err != nil {
		return fmt.Errorf("app: connect stream: %w", err)
	}
	a.updateStatus(func(st *web.Status) { st.StreamConnected = true })

	if a.agent != nil {
		if err := a.agent.Connect(ctx); err != nil {
			a.logger.Error("voice connect failed, continuing vision-only", "error", err)
		} else {
			a.updateStatus(func(st *web.Status) { st.VoiceConnected = true })
		}
	}

	ticker := time.NewTicker(a.cfg.CaptureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("pipeline stopping")
			return nil
		case <-ticker.C:
			a.captureAndSend()
		}
	}
}

// Shutdown releases every component. Safe to call more than once.
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		if a.agent != nil {
			if err := a.agent.Close(); err != nil {
				a.logger.Warn("voice close failed", "error", err)
			}
		}
		if err := a.stream.Close(); err != nil {
			a.logger.Warn("stream close failed", "error", err)
		}
		if a.server != nil {
			if err := a.server.Shutdown(); err != nil {
				a.logger.Warn("dashboard shutdown failed", "error", err)
			}
		}
		if err := a.source.Close(); err != nil {
			a.logger.Warn("source close failed", "error", err)
		}
		a.logger.Info("pipeline stopped")
	})
}

// LatestFrame returns the newest annotated JPEG, nil before the first
// result arrives.
func (a *App) LatestFrame() []byte {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	return a.lastAnnotated
}

// LatestDetections returns the newest tracked set.
func (a *App) LatestDetections() []detect.Detection {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	return a.lastTracked
}

func (a *App) captureAndSend() {
	frame, err := a.source.CaptureJPEG()
	if err != nil {
		a.pipe.CaptureErrors.Add(1)
		a.logger.Warn("frame capture failed", "error", err)
		return
	}
	a.pipe.FramesCaptured.Add(1)

	a.frameMu.Lock()
	a.lastFrame = frame
	a.frameMu.Unlock()

	if !a.stream.IsConnected() {
		return
	}
	if err := a.stream.SendFrame(frame); err != nil {
		a.pipe.StreamErrors.Add(1)
		a.logger.Warn("frame send failed", "error", err)
		return
	}
	a.pipe.FramesSent.Add(1)
}

// handleResult is the single writer of the tracker and, through it, of
// the published detection state. The stream client delivers results
// sequentially, including across reconnects.
func (a *App) handleResult(res *stream.Result) {
	if a.resetPending.Swap(false) {
		a.tracker.Reset()
	}

	a.pipe.DetectionsReceived.Add(1)
	a.pipe.ObjectsDetected.Add(uint64(len(res.Detections)))
	a.pipe.DetectLatencyMs.Store(uint64(res.LatencyMS))
	if res.Timestamp > 0 {
		rt := time.Since(time.UnixMilli(int64(res.Timestamp * 1000)))
		if rt > 0 {
			a.pipe.RoundTripMs.Store(uint64(rt.Milliseconds()))
		}
	}

	tracked := a.tracker.Track(res.Detections)
	for _, d := range tracked {
		if d.Tracked {
			a.pipe.ObjectsTracked.Add(1)
		}
	}

	a.frameMu.RLock()
	frame := a.lastFrame
	a.frameMu.RUnlock()

	var annotated []byte
	if len(frame) > 0 {
		start := time.Now()
		out, err := a.annotator.AnnotateJPEG(frame, tracked, a.currentHighlight())
		if err != nil {
			a.logger.Warn("annotation failed", "error", err)
		} else {
			annotated = out
			a.pipe.RenderMs.Store(uint64(time.Since(start).Milliseconds()))
		}
	}

	a.outMu.Lock()
	a.lastTracked = tracked
	if annotated != nil {
		a.lastAnnotated = annotated
	}
	a.outMu.Unlock()

	if a.server == nil {
		return
	}
	a.server.SetDetections(res.Timestamp, tracked)
	if annotated != nil {
		a.server.PublishFrame(annotated)
	}
	if now := time.Now(); now.Sub(a.lastStatusPush) >= statusRefresh {
		a.lastStatusPush = now
		a.server.UpdateStatus(func(st *web.Status) {
			st.BackendFPS = res.FPS
			st.QueueSize = res.QueueSize
		})
	}
}

func (a *App) handleScene(sc *stream.Scene) {
	a.pipe.ScenesReceived.Add(1)

	a.outMu.Lock()
	a.lastScene = sc.Description
	a.lastSceneAt = time.Now()
	a.outMu.Unlock()

	a.logger.Info("scene description",
		"description", sc.Description,
		"frames", sc.FrameCount,
		"span", sc.TimeSpan,
	)

	if a.server != nil {
		a.server.PublishEvent(hub.EventScene, map[string]any{
			"description": sc.Description,
			"frame_count": sc.FrameCount,
			"time_span":   sc.TimeSpan,
		})
		a.server.UpdateStatus(func(st *web.Status) {
			st.LastScene = sc.Description
			st.LastSceneAt = time.Now().UTC().Format(time.RFC3339)
		})
	}

	if a.agent != nil && a.agent.IsConnected() {
		if err := a.agent.SendSceneContext(sc.Description); err != nil {
			a.logger.Warn("scene context rejected", "error", err)
		} else {
			a.pipe.ContextUpdates.Add(1)
		}
	}
}

func (a *App) handleSkip(skip *stream.Skip) {
	a.pipe.FramesSkipped.Add(1)
	a.logger.Debug("backend skipped frame",
		"reason", skip.Reason,
		"queue", skip.QueueSize,
	)
	if a.server != nil {
		a.server.PublishEvent(hub.EventFrameSkipped, map[string]any{
			"reason":     skip.Reason,
			"queue_size": skip.QueueSize,
		})
	}
}

func (a *App) handleStreamError(err error) {
	a.pipe.StreamErrors.Add(1)
	a.logger.Warn("stream error", "error", err)

	connected := a.stream.IsConnected()
	a.updateStatus(func(st *web.Status) { st.StreamConnected = connected })
}

func (a *App) handleReconnect() {
	a.pipe.StreamReconnects.Add(1)
	// Motion history from before the gap must not smooth into the
	// next result.
	a.resetPending.Store(true)
	a.logger.Info("stream reconnected")
	a.updateStatus(func(st *web.Status) { st.StreamConnected = true })
}

func (a *App) handleTranscript(role, text string, isFinal bool) {
	if !isFinal || text == "" {
		return
	}
	a.logger.Info("transcript", "role", role, "text", text)

	if a.server == nil {
		return
	}
	a.server.PublishEvent(hub.EventTranscript, map[string]any{
		"role": role,
		"text": text,
	})
	a.server.UpdateStatus(func(st *web.Status) {
		if role == voice.RoleUser {
			st.LastUserText = text
		} else {
			st.LastAgentText = text
		}
	})
}

func (a *App) handleToolCall(call voice.ToolCall) {
	a.pipe.ToolCalls.Add(1)
	a.logger.Info("voice tool call", "tool", call.Name)
	if a.server != nil {
		a.server.PublishEvent(hub.EventTool, map[string]any{
			"name": call.Name,
			"args": call.Args,
		})
	}
}

func (a *App) setListening(on bool) {
	a.updateStatus(func(st *web.Status) { st.Listening = on })
}

func (a *App) updateStatus(fn func(*web.Status)) {
	if a.server != nil {
		a.server.UpdateStatus(fn)
	}
}

func (a *App) currentHighlight() string {
	a.highlightMu.RLock()
	defer a.highlightMu.RUnlock()
	return a.highlight
}

func (a *App) setHighlight(label string) {
	a.highlightMu.Lock()
	a.highlight = label
	a.highlightMu.Unlock()
}
