package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/argus-vision/go-argus/pkg/hub"
	"github.com/argus-vision/go-argus/pkg/voice"
)

// sceneFreshness is how long a scene description stays worth quoting
// back to the agent from get_screenshot.
const sceneFreshness = 2 * time.Minute

// voiceTools returns the tools the agent can call against the pipeline.
// Handlers return text; tool outputs in the realtime protocol are
// strings, so the camera view is described rather than attached.
func (a *App) voiceTools() []voice.Tool {
	return []voice.Tool{
		{
			Name:        "get_screenshot",
			Description: "Look through the camera right now. Returns the objects currently detected in view and the latest scene summary. Always use this when asked what you can see.",
			Parameters:  map[string]any{},
			Handler: func(args map[string]any) (string, error) {
				return a.describeView(), nil
			},
		},
		{
			Name:        "highlight_object",
			Description: "Highlight every detected object with the given label on the live video feed. Pass an empty label to clear the highlight.",
			Parameters: map[string]any{
				"label": map[string]any{
					"type":        "string",
					"description": "Object label to highlight, e.g. 'cup' or 'person'",
				},
			},
			Handler: func(args map[string]any) (string, error) {
				label, _ := args["label"].(string)
				label = strings.ToLower(strings.TrimSpace(label))
				a.setHighlight(label)

				if label == "" {
					return "Highlight cleared.", nil
				}
				if !a.labelInView(label) {
					return fmt.Sprintf("No %q in view right now; it will be highlighted as soon as one appears.", label), nil
				}
				return fmt.Sprintf("Highlighting every %q in view.", label), nil
			},
		},
		{
			Name:        "show_message",
			Description: "Show a short text message on the dashboard for the person watching it.",
			Parameters: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "The message to display",
				},
			},
			Handler: func(args map[string]any) (string, error) {
				text, _ := args["text"].(string)
				if strings.TrimSpace(text) == "" {
					return "Please provide the message text.", nil
				}
				if a.server == nil {
					return "The dashboard is not running.", nil
				}
				a.server.PublishEvent(hub.EventMessage, map[string]any{"text": text})
				return "Message shown on the dashboard.", nil
			},
		},
	}
}

// describeView summarizes the tracked set and the latest scene
// narration as one line of text for the agent.
func (a *App) describeView() string {
	a.outMu.RLock()
	tracked := a.lastTracked
	scene := a.lastScene
	sceneAt := a.lastSceneAt
	a.outMu.RUnlock()

	var b strings.Builder

	if len(tracked) == 0 {
		b.WriteString("No recognized objects in view right now.")
	} else {
		counts := make(map[string]int)
		best := make(map[string]float64)
		for _, d := range tracked {
			counts[d.Label]++
			if d.Confidence > best[d.Label] {
				best[d.Label] = d.Confidence
			}
		}

		labels := make([]string, 0, len(counts))
		for label := range counts {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		parts := make([]string, 0, len(labels))
		for _, label := range labels {
			if n := counts[label]; n > 1 {
				parts = append(parts, fmt.Sprintf("%s x%d", label, n))
			} else {
				parts = append(parts, fmt.Sprintf("%s (%.0f%% confidence)", label, best[label]*100))
			}
		}
		fmt.Fprintf(&b, "The camera currently sees %d object(s): %s.", len(tracked), strings.Join(parts, ", "))
	}

	if scene != "" && time.Since(sceneAt) < sceneFreshness {
		b.WriteString(" Latest scene summary: ")
		b.WriteString(scene)
	}
	return b.String()
}

// labelInView reports whether any tracked detection carries the label.
func (a *App) labelInView(label string) bool {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	for _, d := range a.lastTracked {
		if strings.EqualFold(d.Label, label) {
			return true
		}
	}
	return false
}
