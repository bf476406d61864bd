// Package detect defines the detection data model shared by the
// streaming client, the tracker and the renderer, plus a small REST
// client for one-shot inference against the backend.
package detect

// Box is an axis-aligned bounding box in source-frame pixel space.
// A box is valid when X1 < X2 and Y1 < Y2.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Valid reports whether the box has positive width and height.
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Width returns the box width, 0 for degenerate boxes.
func (b Box) Width() float64 {
	if w := b.X2 - b.X1; w > 0 {
		return w
	}
	return 0
}

// Height returns the box height, 0 for degenerate boxes.
func (b Box) Height() float64 {
	if h := b.Y2 - b.Y1; h > 0 {
		return h
	}
	return 0
}

// Area returns the box area. Degenerate boxes have zero area.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// IoU computes Intersection-over-Union between two boxes: the overlap
// area divided by the combined area. Disjoint or degenerate boxes
// yield 0. The union is never zero when the intersection is positive,
// so there is no divide-by-zero path.
func IoU(a, b Box) float64 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Lerp interpolates per coordinate from a toward b by factor t,
// t=0 keeps a, t=1 reaches b.
func Lerp(a, b Box, t float64) Box {
	return Box{
		X1: a.X1 + t*(b.X1-a.X1),
		Y1: a.Y1 + t*(b.Y1-a.Y1),
		X2: a.X2 + t*(b.X2-a.X2),
		Y2: a.Y2 + t*(b.Y2-a.Y2),
	}
}

// Detection is one recognized object instance in a frame.
// Smoothed, Tracked and Opacity are assigned by the tracker; a zero
// Opacity means "draw fully opaque".
type Detection struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Smoothed   *Box    `json:"smoothed,omitempty"`
	Tracked    bool    `json:"tracked,omitempty"`
	Opacity    float64 `json:"opacity,omitempty"`
}

// DisplayBox returns the box the renderer should draw: the smoothed
// box when the tracker produced one, the raw box otherwise.
func (d Detection) DisplayBox() Box {
	if d.Smoothed != nil {
		return *d.Smoothed
	}
	return d.Box
}

// ImageSize carries the source frame dimensions reported by the backend.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Params are the inference parameters sent with every frame.
// Zero values are omitted so the backend applies its own defaults.
// Normalize asks for 0..1 coordinates instead of pixels; only the
// one-shot REST endpoint honors it, the streaming path always works
// in pixel space.
type Params struct {
	Conf      float64 `json:"conf,omitempty"`
	IoU       float64 `json:"iou,omitempty"`
	ImageSize int     `json:"imgsz,omitempty"`
	MaxDet    int     `json:"max_det,omitempty"`
	Normalize bool    `json:"normalize,omitempty"`
}

// DefaultParams returns the backend's documented defaults.
func DefaultParams() Params {
	return Params{Conf: 0.25, IoU: 0.45, ImageSize: 640}
}
