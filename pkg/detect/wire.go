package detect

// WireDetection is a detection exactly as the backend serializes it.
// box_xyxy may be absent for malformed entries; the resulting zero-value
// Box is invalid and gets skipped by matching and rendering rather than
// failing the frame.
type WireDetection struct {
	ClassID    int      `json:"class_id"`
	ClassName  string   `json:"class_name"`
	Confidence float64  `json:"confidence"`
	BoxXYXY    *WireBox `json:"box_xyxy"`
}

// WireBox is the backend's corner-format box encoding.
type WireBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection converts a wire entry to the internal model.
func (w WireDetection) Detection() Detection {
	d := Detection{
		ClassID:    w.ClassID,
		Label:      w.ClassName,
		Confidence: w.Confidence,
	}
	if w.BoxXYXY != nil {
		d.Box = Box{X1: w.BoxXYXY.X1, Y1: w.BoxXYXY.Y1, X2: w.BoxXYXY.X2, Y2: w.BoxXYXY.Y2}
	}
	return d
}

// FromWire converts a backend detection list, preserving order.
func FromWire(ws []WireDetection) []Detection {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Detection, len(ws))
	for i, w := range ws {
		out[i] = w.Detection()
	}
	return out
}
