package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithAutoReconnect(false), WithTimeout(2 * time.Second)}, opts...)
	c, err := NewClient(serverURL, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestDetectSocketURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"http base", "http://localhost:8000", "ws://localhost:8000/ws/detect", false},
		{"https base", "https://api.example.com", "wss://api.example.com/ws/detect", false},
		{"ws passthrough", "ws://localhost:8000/ws/detect", "ws://localhost:8000/ws/detect", false},
		{"custom path kept", "http://localhost:8000/custom", "ws://localhost:8000/custom", false},
		{"trailing slash", "http://localhost:8000/", "ws://localhost:8000/ws/detect", false},
		{"bad scheme", "ftp://localhost", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectSocketURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("detectSocketURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("detectSocketURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConnectAndReceiveDetections(t *testing.T) {
	frames := make(chan frameMessage, 1)
	server := newTestServer(t, func(conn *websocket.Conn) {
		var fm frameMessage
		if err := conn.ReadJSON(&fm); err != nil {
			return
		}
		frames <- fm

		conn.WriteJSON(map[string]any{
			"type":      "detection",
			"timestamp": fm.Timestamp,
			"detections": []map[string]any{
				{
					"class_id":   41,
					"class_name": "cup",
					"confidence": 0.9,
					"box_xyxy":   map[string]float64{"x1": 1, "y1": 2, "x2": 3, "y2": 4},
				},
			},
			"image":       map[string]int{"width": 640, "height": 480},
			"latency_ms":  15.5,
			"fps":         12.0,
			"queue_size":  1,
			"performance": map[string]any{"total_frames": 10, "dropped_frames": 1, "drop_rate": 0.1},
		})

		// Hold the socket open until the client hangs up.
		conn.ReadMessage()
	})
	defer server.Close()

	c := newTestClient(t, server.URL)
	results := make(chan *Result, 1)
	c.OnResult(func(r *Result) { results <- r })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.IsConnected() {
		t.Fatal("IsConnected() = false after Connect")
	}

	if err := c.SendFrame([]byte("fake-jpeg")); err != nil {
		t.Fatalf("SendFrame() error = %v", err)
	}

	select {
	case fm := <-frames:
		if fm.Type != "frame" {
			t.Errorf("frame message type = %q, want frame", fm.Type)
		}
		decoded, err := base64.StdEncoding.DecodeString(fm.Frame)
		if err != nil || string(decoded) != "fake-jpeg" {
			t.Errorf("frame payload = %q (err %v), want fake-jpeg", decoded, err)
		}
		if fm.Params.Conf != 0.25 {
			t.Errorf("frame conf = %v, want default 0.25", fm.Params.Conf)
		}
		if fm.Timestamp <= 0 {
			t.Errorf("frame timestamp = %v, want positive Unix seconds", fm.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}

	select {
	case r := <-results:
		if len(r.Detections) != 1 {
			t.Fatalf("got %d detections, want 1", len(r.Detections))
		}
		if r.Detections[0].Label != "cup" {
			t.Errorf("Label = %q, want cup", r.Detections[0].Label)
		}
		if r.Image.Width != 640 || r.Image.Height != 480 {
			t.Errorf("Image = %+v, want 640x480", r.Image)
		}
		if r.LatencyMS != 15.5 {
			t.Errorf("LatencyMS = %v, want 15.5", r.LatencyMS)
		}
		if r.Timestamp <= 0 {
			t.Errorf("Timestamp = %v, want echoed frame timestamp", r.Timestamp)
		}
		if r.Performance == nil || r.Performance.DroppedFrames != 1 {
			t.Errorf("Performance = %+v, want dropped_frames 1", r.Performance)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for detection result")
	}

	if got := c.Stats(); got.FramesSent != 1 || got.MessagesReceived != 1 {
		t.Errorf("Stats() = %+v, want 1 frame sent and 1 message received", got)
	}
}

func TestAuthHandshake(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		var am authMessage
		if err := conn.ReadJSON(&am); err != nil {
			return
		}
		if am.Type != "auth" || am.Token != "secret" {
			conn.WriteJSON(map[string]string{"type": "auth_error", "message": "invalid token"})
			return
		}
		conn.WriteJSON(map[string]string{"type": "auth_success"})
		conn.ReadMessage()
	})
	defer server.Close()

	c := newTestClient(t, server.URL, WithToken("secret"))
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.IsConnected() {
		t.Error("IsConnected() = false after successful auth")
	}
}

func TestAuthRejected(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		var am authMessage
		if err := conn.ReadJSON(&am); err != nil {
			return
		}
		conn.WriteJSON(map[string]string{"type": "auth_error", "message": "invalid token"})
	})
	defer server.Close()

	c := newTestClient(t, server.URL, WithToken("wrong"))
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() should fail when auth is rejected")
	}
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("error = %v, want ErrAuthFailed", err)
	}
	if !IsAuthFailure(err) {
		t.Errorf("IsAuthFailure(%v) = false, want true", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after rejected auth")
	}
}

func TestSceneAndSkipMessages(t *testing.T) {
	sceneImg := base64.StdEncoding.EncodeToString([]byte("scene-jpeg"))
	server := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]any{
			"type":        "scene_description",
			"img":         sceneImg,
			"timestamp":   1724400000.5,
			"description": "a cup on a desk",
			"frame_count": 5,
			"time_span":   "5 seconds",
		})
		conn.WriteJSON(map[string]any{
			"type":        "frame_skipped",
			"reason":      "queue_full",
			"queue_size":  8,
			"avg_latency": 120.0,
		})
		conn.ReadMessage()
	})
	defer server.Close()

	c := newTestClient(t, server.URL)
	scenes := make(chan *Scene, 1)
	skips := make(chan *Skip, 1)
	c.OnScene(func(s *Scene) { scenes <- s })
	c.OnSkipped(func(s *Skip) { skips <- s })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	select {
	case s := <-scenes:
		if s.Description != "a cup on a desk" {
			t.Errorf("Description = %q", s.Description)
		}
		if string(s.Image) != "scene-jpeg" {
			t.Errorf("Image = %q, want decoded scene-jpeg", s.Image)
		}
		if s.FrameCount != 5 {
			t.Errorf("FrameCount = %d, want 5", s.FrameCount)
		}
		if s.TimeSpan != "5 seconds" {
			t.Errorf("TimeSpan = %q, want 5 seconds", s.TimeSpan)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scene")
	}

	select {
	case s := <-skips:
		if s.Reason != "queue_full" {
			t.Errorf("Reason = %q, want queue_full", s.Reason)
		}
		if s.QueueSize != 8 {
			t.Errorf("QueueSize = %d, want 8", s.QueueSize)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for skip notice")
	}
}

func TestServerErrorMessage(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]string{"type": "error", "message": "inference failed"})
		conn.ReadMessage()
	})
	defer server.Close()

	c := newTestClient(t, server.URL)
	errs := make(chan error, 1)
	c.OnError(func(err error) { errs <- err })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	select {
	case err := <-errs:
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("error = %T, want *ServerError", err)
		}
		if serverErr.Message != "inference failed" {
			t.Errorf("Message = %q", serverErr.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server error")
	}
}

func TestSendFrameNotConnected(t *testing.T) {
	c := newTestClient(t, "http://localhost:8000")
	if err := c.SendFrame([]byte("frame")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendFrame() error = %v, want ErrNotConnected", err)
	}
}

func TestSendFrameEmpty(t *testing.T) {
	c := newTestClient(t, "http://localhost:8000")
	if err := c.SendFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("SendFrame(nil) error = %v, want ErrEmptyFrame", err)
	}
}

func TestUpdateParams(t *testing.T) {
	frames := make(chan frameMessage, 1)
	server := newTestServer(t, func(conn *websocket.Conn) {
		var fm frameMessage
		if err := conn.ReadJSON(&fm); err != nil {
			return
		}
		frames <- fm
		conn.ReadMessage()
	})
	defer server.Close()

	c := newTestClient(t, server.URL)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	p := c.Params()
	p.Conf = 0.6
	p.MaxDet = 10
	c.UpdateParams(p)

	if err := c.SendFrame([]byte("frame")); err != nil {
		t.Fatalf("SendFrame() error = %v", err)
	}

	select {
	case fm := <-frames:
		if fm.Params.Conf != 0.6 {
			t.Errorf("conf = %v, want updated 0.6", fm.Params.Conf)
		}
		if fm.Params.MaxDet != 10 {
			t.Errorf("max_det = %d, want 10", fm.Params.MaxDet)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestConnectTwice(t *testing.T) {
	server := newTestServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})
	defer server.Close()

	c := newTestClient(t, server.URL)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if err := c.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect() error = %v, want ErrAlreadyConnected", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrMissingServerURL) {
		t.Errorf("NewClient(\"\") error = %v, want ErrMissingServerURL", err)
	}
	if _, err := NewClient("ftp://bad"); err == nil {
		t.Error("NewClient with unsupported scheme should fail")
	}
}
