// Package track smooths object detections across frames so rendered
// boxes stay steady instead of jittering with per-frame inference
// noise. Detections are matched frame-to-frame by class label and
// spatial overlap, then interpolated toward their new positions.
package track

import "github.com/argus-vision/go-argus/pkg/detect"

// Smooth matches the current frame's detections against the previous
// frame's and augments each with a smoothed box and a tracked flag.
//
// Matching is greedy in input order: each current detection takes the
// not-yet-consumed previous detection with the same label and the
// highest IoU between their raw boxes, provided that IoU exceeds
// cfg.IoUThreshold. Equal IoU keeps the earlier candidate. A matched
// detection gets a box interpolated from the previous detection's
// smoothed box (raw box if it has none) toward the current raw box.
// An unmatched detection keeps its raw box as the smoothed box and is
// assigned cfg.NewOpacity for fade-in.
//
// Neither input slice is modified. The result preserves the order and
// length of curr. When prev is empty, curr is returned as-is.
func Smooth(cfg Config, prev, curr []detect.Detection) []detect.Detection {
	if len(prev) == 0 {
		return curr
	}

	out := make([]detect.Detection, len(curr))
	consumed := make([]bool, len(prev))

	for i, d := range curr {
		out[i] = d

		// A detection without a usable box never matches.
		if !d.Box.Valid() {
			markNew(&out[i], cfg)
			continue
		}

		best := -1
		bestIoU := 0.0
		for j, p := range prev {
			if consumed[j] || p.Label != d.Label {
				continue
			}
			if iou := detect.IoU(d.Box, p.Box); iou > bestIoU {
				bestIoU = iou
				best = j
			}
		}

		if best < 0 || bestIoU <= cfg.IoUThreshold {
			markNew(&out[i], cfg)
			continue
		}

		consumed[best] = true
		base := prev[best].Box
		if prev[best].Smoothed != nil {
			base = *prev[best].Smoothed
		}
		sm := detect.Lerp(base, d.Box, cfg.SmoothingFactor)
		out[i].Smoothed = &sm
		out[i].Tracked = true
		out[i].Opacity = 0
	}
	return out
}

func markNew(d *detect.Detection, cfg Config) {
	sm := d.Box
	d.Smoothed = &sm
	d.Tracked = false
	d.Opacity = cfg.NewOpacity
}

// Tracker retains the previous frame's detections between calls so
// callers do not have to carry the state themselves. It is not safe
// for concurrent use: frames are expected to arrive one at a time
// from a single goroutine, which is how the stream delivers them.
type Tracker struct {
	cfg  Config
	prev []detect.Detection
}

// New creates a Tracker with the given configuration.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{cfg: cfg}, nil
}

// Track smooths curr against the previous frame and retains the
// result as the reference for the next call.
func (t *Tracker) Track(curr []detect.Detection) []detect.Detection {
	out := Smooth(t.cfg, t.prev, curr)
	t.prev = out
	return out
}

// Reset drops the retained frame so the next Track starts fresh,
// for example after the stream reconnects or the camera changes.
func (t *Tracker) Reset() {
	t.prev = nil
}

// Previous returns the detections retained from the last Track call.
func (t *Tracker) Previous() []detect.Detection {
	return t.prev
}
