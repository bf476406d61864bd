package web

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/argus-vision/go-argus/internal/metrics"
	"github.com/argus-vision/go-argus/pkg/detect"
)

func TestStatusEndpoint(t *testing.T) {
	s := NewServer("0", metrics.New())
	s.UpdateStatus(func(st *Status) {
		st.StreamConnected = true
		st.BackendFPS = 12.5
		st.LastScene = "a desk with a laptop"
	})

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/status", nil))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}

	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !got.StreamConnected {
		t.Error("stream_connected = false, want true")
	}
	if got.VoiceConnected {
		t.Error("voice_connected = true, want false")
	}
	if got.BackendFPS != 12.5 {
		t.Errorf("backend_fps = %v, want 12.5", got.BackendFPS)
	}
	if got.LastScene != "a desk with a laptop" {
		t.Errorf("last_scene = %q", got.LastScene)
	}
	if got.EventClients != 0 || got.FrameClients != 0 {
		t.Errorf("clients = %d/%d, want 0/0", got.EventClients, got.FrameClients)
	}
}

func TestDetectionsEndpoint(t *testing.T) {
	s := NewServer("0", metrics.New())
	s.SetDetections(1718000000.25, []detect.Detection{
		{ClassID: 41, Label: "cup", Confidence: 0.88, Box: detect.Box{X1: 10, Y1: 20, X2: 60, Y2: 90}, Tracked: true},
	})

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/detections", nil))
	if err != nil {
		t.Fatalf("detections request: %v", err)
	}

	var got TrackedSet
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode detections: %v", err)
	}
	if got.Count != 1 || len(got.Detections) != 1 {
		t.Fatalf("count = %d, detections = %d, want 1", got.Count, len(got.Detections))
	}
	if got.Detections[0].Label != "cup" || !got.Detections[0].Tracked {
		t.Errorf("detection = %+v", got.Detections[0])
	}
	if got.Timestamp != 1718000000.25 {
		t.Errorf("timestamp = %v", got.Timestamp)
	}
}

func TestDetectionsEmptyIsList(t *testing.T) {
	s := NewServer("0", metrics.New())

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/detections", nil))
	if err != nil {
		t.Fatalf("detections request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"detections":[]`) {
		t.Errorf("empty set should encode as [], got %s", body)
	}

	// A nil slice from the caller is normalized too.
	s.SetDetections(1, nil)
	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/detections", nil))
	if err != nil {
		t.Fatalf("detections request: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"detections":[]`) {
		t.Errorf("nil set should encode as [], got %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	pipe := metrics.New()
	pipe.FramesSent.Add(3)
	s := NewServer("0", pipe)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "argus_frames_sent_total 3") {
		t.Errorf("metrics output missing counter, got:\n%s", body)
	}
}

func TestWebsocketUpgradeRequired(t *testing.T) {
	s := NewServer("0", metrics.New())

	resp, err := s.app.Test(httptest.NewRequest("GET", "/ws/events", nil))
	if err != nil {
		t.Fatalf("ws request: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("status code = %d, want 426", resp.StatusCode)
	}
}
