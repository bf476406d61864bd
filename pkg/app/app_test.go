package app

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/argus-vision/go-argus/pkg/camera"
	"github.com/argus-vision/go-argus/pkg/detect"
	"github.com/argus-vision/go-argus/pkg/stream"
	"github.com/argus-vision/go-argus/pkg/voice"
)

func newTestApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()
	cfg := Config{
		Source:    camera.NewStatic(320, 240),
		ServerURL: "http://localhost:1",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func cupResult(x1, y1, x2, y2 float64) *stream.Result {
	return &stream.Result{
		Detections: []detect.Detection{
			{ClassID: 41, Label: "cup", Confidence: 0.9, Box: detect.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}},
		},
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		LatencyMS: 15,
		FPS:       10,
	}
}

func findTool(t *testing.T, a *App, name string) voice.Tool {
	t.Helper()
	for _, tool := range a.voiceTools() {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not defined", name)
	return voice.Tool{}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{ServerURL: "http://localhost:1"}); !errors.Is(err, ErrNoSource) {
		t.Errorf("New() without source error = %v, want ErrNoSource", err)
	}
	if _, err := New(Config{Source: camera.NewStatic(64, 64)}); !errors.Is(err, ErrNoServerURL) {
		t.Errorf("New() without URL error = %v, want ErrNoServerURL", err)
	}
}

func TestToolsRegisteredOnAgent(t *testing.T) {
	mock := voice.NewMock()
	newTestApp(t, func(cfg *Config) { cfg.Agent = mock })

	tools := mock.Tools()
	want := map[string]bool{"get_screenshot": false, "highlight_object": false, "show_message": false}
	for _, tool := range tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q not registered on the agent", name)
		}
	}
}

func TestHandleResultTracksAndRenders(t *testing.T) {
	a := newTestApp(t, nil)
	a.captureAndSend() // primes lastFrame; stream is not connected

	if got := a.pipe.FramesCaptured.Load(); got != 1 {
		t.Fatalf("FramesCaptured = %d, want 1", got)
	}

	a.handleResult(cupResult(10, 20, 60, 90))

	first := a.LatestDetections()
	if len(first) != 1 {
		t.Fatalf("got %d detections, want 1", len(first))
	}
	if first[0].Tracked {
		t.Error("first sighting should not be tracked")
	}
	if a.LatestFrame() == nil {
		t.Error("no annotated frame published")
	}
	if got := a.pipe.DetectionsReceived.Load(); got != 1 {
		t.Errorf("DetectionsReceived = %d, want 1", got)
	}
	if got := a.pipe.ObjectsTracked.Load(); got != 0 {
		t.Errorf("ObjectsTracked = %d, want 0", got)
	}

	// Same cup shifted: must match and smooth toward the new box.
	res := cupResult(14, 24, 64, 94)
	res.Detections = append(res.Detections, detect.Detection{
		ClassID: 0, Label: "person", Confidence: 0.8,
		Box: detect.Box{X1: 200, Y1: 20, X2: 280, Y2: 200},
	})
	a.handleResult(res)

	second := a.LatestDetections()
	if len(second) != 2 {
		t.Fatalf("got %d detections, want 2", len(second))
	}

	cup := second[0]
	if !cup.Tracked {
		t.Error("moved cup should be tracked")
	}
	if cup.Smoothed == nil {
		t.Fatal("tracked cup has no smoothed box")
	}
	if got, want := cup.Smoothed.X1, 10+0.3*(14-10); math.Abs(got-want) > 1e-9 {
		t.Errorf("Smoothed.X1 = %v, want %v", got, want)
	}
	if cup.Opacity != 0 {
		t.Errorf("tracked cup opacity = %v, want 0", cup.Opacity)
	}

	person := second[1]
	if person.Tracked {
		t.Error("new person should not be tracked")
	}
	if person.Opacity != 0.5 {
		t.Errorf("new person opacity = %v, want 0.5", person.Opacity)
	}

	if got := a.pipe.ObjectsTracked.Load(); got != 1 {
		t.Errorf("ObjectsTracked = %d, want 1", got)
	}
}

func TestHandleReconnectDefersTrackerReset(t *testing.T) {
	a := newTestApp(t, nil)
	a.captureAndSend()
	a.handleResult(cupResult(10, 20, 60, 90))

	a.handleReconnect()
	if got := a.pipe.StreamReconnects.Load(); got != 1 {
		t.Errorf("StreamReconnects = %d, want 1", got)
	}
	if a.tracker.Previous() == nil {
		t.Fatal("reset must not happen on the reconnect goroutine")
	}

	// The next result starts a fresh track history.
	a.handleResult(cupResult(10, 20, 60, 90))
	got := a.LatestDetections()
	if len(got) != 1 {
		t.Fatalf("got %d detections, want 1", len(got))
	}
	if got[0].Tracked {
		t.Error("first result after reconnect should not match stale history")
	}
}

func TestHandleSceneSendsContext(t *testing.T) {
	mock := voice.NewMock()
	a := newTestApp(t, func(cfg *Config) { cfg.Agent = mock })
	if err := mock.Connect(context.Background()); err != nil {
		t.Fatalf("mock connect: %v", err)
	}

	a.handleScene(&stream.Scene{Description: "a cup on a desk", FrameCount: 10, TimeSpan: "5 seconds"})

	if len(mock.ScenesSent) != 1 || mock.ScenesSent[0] != "a cup on a desk" {
		t.Errorf("ScenesSent = %v", mock.ScenesSent)
	}
	if got := a.pipe.ContextUpdates.Load(); got != 1 {
		t.Errorf("ContextUpdates = %d, want 1", got)
	}
	if got := a.pipe.ScenesReceived.Load(); got != 1 {
		t.Errorf("ScenesReceived = %d, want 1", got)
	}
}

func TestHandleSceneSkipsDisconnectedAgent(t *testing.T) {
	mock := voice.NewMock() // never connected
	a := newTestApp(t, func(cfg *Config) { cfg.Agent = mock })

	a.handleScene(&stream.Scene{Description: "an empty room"})

	if len(mock.ScenesSent) != 0 {
		t.Errorf("ScenesSent = %v, want none", mock.ScenesSent)
	}
	if got := a.pipe.ContextUpdates.Load(); got != 0 {
		t.Errorf("ContextUpdates = %d, want 0", got)
	}
}

func TestGetScreenshotTool(t *testing.T) {
	a := newTestApp(t, nil)
	tool := findTool(t, a, "get_screenshot")

	out, err := tool.Handler(nil)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !strings.Contains(out, "No recognized objects") {
		t.Errorf("empty view output = %q", out)
	}

	a.captureAndSend()
	res := cupResult(10, 20, 60, 90)
	res.Detections = append(res.Detections,
		detect.Detection{ClassID: 41, Label: "cup", Confidence: 0.7, Box: detect.Box{X1: 100, Y1: 20, X2: 150, Y2: 90}},
		detect.Detection{ClassID: 0, Label: "person", Confidence: 0.95, Box: detect.Box{X1: 200, Y1: 20, X2: 280, Y2: 200}},
	)
	a.handleResult(res)
	a.handleScene(&stream.Scene{Description: "someone holding two cups"})

	out, err = tool.Handler(nil)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !strings.Contains(out, "cup x2") {
		t.Errorf("output missing cup count: %q", out)
	}
	if !strings.Contains(out, "person") {
		t.Errorf("output missing person: %q", out)
	}
	if !strings.Contains(out, "someone holding two cups") {
		t.Errorf("output missing scene summary: %q", out)
	}
}

func TestHighlightObjectTool(t *testing.T) {
	a := newTestApp(t, nil)
	a.captureAndSend()
	a.handleResult(cupResult(10, 20, 60, 90))

	tool := findTool(t, a, "highlight_object")

	out, err := tool.Handler(map[string]any{"label": " Cup "})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := a.currentHighlight(); got != "cup" {
		t.Errorf("highlight = %q, want cup", got)
	}
	if !strings.Contains(out, "Highlighting") {
		t.Errorf("in-view output = %q", out)
	}

	out, _ = tool.Handler(map[string]any{"label": "dog"})
	if !strings.Contains(out, "No \"dog\" in view") {
		t.Errorf("absent-label output = %q", out)
	}
	if got := a.currentHighlight(); got != "dog" {
		t.Errorf("highlight = %q, want dog (armed for later frames)", got)
	}

	out, _ = tool.Handler(map[string]any{"label": ""})
	if got := a.currentHighlight(); got != "" {
		t.Errorf("highlight = %q, want cleared", got)
	}
	if !strings.Contains(out, "cleared") {
		t.Errorf("clear output = %q", out)
	}
}

func TestShowMessageTool(t *testing.T) {
	a := newTestApp(t, nil) // no dashboard
	tool := findTool(t, a, "show_message")

	out, err := tool.Handler(map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !strings.Contains(out, "dashboard is not running") {
		t.Errorf("no-dashboard output = %q", out)
	}

	a = newTestApp(t, func(cfg *Config) { cfg.DashboardPort = "0" })
	tool = findTool(t, a, "show_message")

	out, _ = tool.Handler(map[string]any{"text": ""})
	if !strings.Contains(out, "provide the message") {
		t.Errorf("empty-text output = %q", out)
	}

	out, _ = tool.Handler(map[string]any{"text": "look at the cup"})
	if !strings.Contains(out, "shown on the dashboard") {
		t.Errorf("output = %q", out)
	}
}

func TestCaptureErrorCounted(t *testing.T) {
	source := camera.NewStatic(64, 64)
	source.Close()
	a := newTestApp(t, func(cfg *Config) { cfg.Source = source })

	a.captureAndSend()
	if got := a.pipe.CaptureErrors.Load(); got != 1 {
		t.Errorf("CaptureErrors = %d, want 1", got)
	}
	if got := a.pipe.FramesCaptured.Load(); got != 0 {
		t.Errorf("FramesCaptured = %d, want 0", got)
	}
}

// detectBackend fakes the backend socket: every frame gets one cup
// detection back, and the second frame also triggers a scene
// description push.
func detectBackend(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frames := 0
		for {
			var fm struct {
				Type      string  `json:"type"`
				Frame     string  `json:"frame"`
				Timestamp float64 `json:"timestamp"`
			}
			if err := conn.ReadJSON(&fm); err != nil {
				return
			}
			if fm.Type != "frame" || fm.Frame == "" {
				continue
			}
			frames++

			conn.WriteJSON(map[string]any{
				"type":      "detection",
				"timestamp": fm.Timestamp,
				"detections": []map[string]any{
					{
						"class_id":   41,
						"class_name": "cup",
						"confidence": 0.9,
						"box_xyxy":   map[string]float64{"x1": 10, "y1": 20, "x2": 60, "y2": 90},
					},
				},
				"image":      map[string]int{"width": 320, "height": 240},
				"latency_ms": 12.0,
				"fps":        10.0,
				"queue_size": 0,
			})

			if frames == 2 {
				conn.WriteJSON(map[string]any{
					"type":        "scene_description",
					"timestamp":   fm.Timestamp,
					"description": "a steady view of a cup",
					"frame_count": 2,
					"time_span":   "5 seconds",
				})
			}
		}
	}))
}

func TestPipelineEndToEnd(t *testing.T) {
	server := detectBackend(t)
	defer server.Close()

	mock := voice.NewMock()
	a, err := New(Config{
		Source:          camera.NewStatic(320, 240),
		Agent:           mock,
		ServerURL:       server.URL,
		CaptureInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a.pipe.FramesSent.Load() >= 3 &&
			a.pipe.DetectionsReceived.Load() >= 2 &&
			a.pipe.ContextUpdates.Load() >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := a.pipe.FramesSent.Load(); got < 3 {
		t.Errorf("FramesSent = %d, want >= 3", got)
	}
	if got := a.pipe.DetectionsReceived.Load(); got < 2 {
		t.Errorf("DetectionsReceived = %d, want >= 2", got)
	}
	if got := a.pipe.ContextUpdates.Load(); got < 1 {
		t.Errorf("ContextUpdates = %d, want >= 1", got)
	}
	if a.LatestFrame() == nil {
		t.Error("no annotated frame after live results")
	}
	if len(a.LatestDetections()) == 0 {
		t.Error("no detections after live results")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on cancel")
	}
	a.Shutdown()
}
