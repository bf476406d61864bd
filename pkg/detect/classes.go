package detect

import (
	"fmt"
	"sort"
	"strings"
)

// COCOClasses contains the 80 COCO class names the backend's model emits.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// ClassName returns the COCO name for an ID, or the ID itself as text
// when the model emits something outside the table.
func ClassName(id int) string {
	if id >= 0 && id < len(COCOClasses) {
		return COCOClasses[id]
	}
	return fmt.Sprintf("%d", id)
}

// KnownLabel reports whether label is one of the model's classes.
func KnownLabel(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, c := range COCOClasses {
		if c == label {
			return true
		}
	}
	return false
}

// Summarize builds a short human-readable inventory of a detection set,
// e.g. "2 persons, 1 cup". Used for voice scene context and logs.
func Summarize(dets []Detection) string {
	if len(dets) == 0 {
		return "nothing detected"
	}

	counts := make(map[string]int)
	for _, d := range dets {
		counts[d.Label]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		n := counts[label]
		name := label
		if n > 1 && !strings.HasSuffix(name, "s") {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	return strings.Join(parts, ", ")
}
