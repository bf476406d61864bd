package detect

import "testing"

func TestFromWire(t *testing.T) {
	wire := []WireDetection{
		{
			ClassID:    41,
			ClassName:  "cup",
			Confidence: 0.91,
			BoxXYXY:    &WireBox{X1: 10, Y1: 20, X2: 110, Y2: 220},
		},
		{
			ClassID:    0,
			ClassName:  "person",
			Confidence: 0.85,
			BoxXYXY:    &WireBox{X1: 200, Y1: 0, X2: 400, Y2: 480},
		},
	}

	got := FromWire(wire)
	if len(got) != 2 {
		t.Fatalf("FromWire() returned %d detections, want 2", len(got))
	}

	// Input order is preserved.
	if got[0].Label != "cup" || got[1].Label != "person" {
		t.Errorf("FromWire() order = [%s, %s], want [cup, person]", got[0].Label, got[1].Label)
	}
	if got[0].ClassID != 41 {
		t.Errorf("ClassID = %d, want 41", got[0].ClassID)
	}
	if !floatEquals(got[0].Confidence, 0.91) {
		t.Errorf("Confidence = %v, want 0.91", got[0].Confidence)
	}
	want := Box{10, 20, 110, 220}
	if !boxEquals(got[0].Box, want) {
		t.Errorf("Box = %v, want %v", got[0].Box, want)
	}
}

func TestFromWireMissingBox(t *testing.T) {
	wire := []WireDetection{
		{ClassID: 41, ClassName: "cup", Confidence: 0.9},
	}

	got := FromWire(wire)
	if len(got) != 1 {
		t.Fatalf("FromWire() returned %d detections, want 1", len(got))
	}
	if got[0].Box.Valid() {
		t.Errorf("detection without box_xyxy should carry an invalid zero box, got %v", got[0].Box)
	}
}

func TestFromWireEmpty(t *testing.T) {
	if got := FromWire(nil); got != nil {
		t.Errorf("FromWire(nil) = %v, want nil", got)
	}
	if got := FromWire([]WireDetection{}); got != nil {
		t.Errorf("FromWire(empty) = %v, want nil", got)
	}
}
