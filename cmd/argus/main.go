// Command argus runs the full realtime pipeline: camera capture,
// websocket streaming to the detection backend, tracking, annotation,
// the local dashboard, and the voice agent.
//
// Usage:
//
//	argus                          # default camera, voice, dashboard on :8090
//	argus -static                  # synthetic frames, no camera needed
//	argus -images ./footage        # replay a directory of images
//	argus -no-voice -conf 0.4      # vision only, stricter confidence
//	argus -prompt "Desk Assistant" # voice instructions from the prompt store
//
// Environment: ARGUS_SERVER, ARGUS_API_KEY, ARGUS_DASHBOARD,
// ARGUS_PROMPT, ARGUS_LOG_LEVEL. A .env file in the working directory
// is loaded automatically.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/argus-vision/go-argus/internal/config"
	ilog "github.com/argus-vision/go-argus/internal/log"
	"github.com/argus-vision/go-argus/pkg/app"
	"github.com/argus-vision/go-argus/pkg/camera"
	"github.com/argus-vision/go-argus/pkg/detect"
	"github.com/argus-vision/go-argus/pkg/prompts"
	"github.com/argus-vision/go-argus/pkg/track"
	"github.com/argus-vision/go-argus/pkg/voice"
)

// defaultInstructions is the system prompt used when no stored prompt
// is selected. The backend mints session tokens without instructions,
// so the client always pushes one on connect.
const defaultInstructions = `You are a friendly voice assistant with live camera vision. ` +
	`You can see what the camera sees through your tools: use get_screenshot to check ` +
	`the current view, highlight_object to point out an object on screen, and ` +
	`show_message to put a short note on the dashboard. Mention what you see only ` +
	`when it is relevant. Keep replies brief and conversational.`

func main() {
	server := flag.String("server", config.ServerURL(), "Detection backend URL")
	cameraID := flag.Int("camera", 0, "Camera device index")
	images := flag.String("images", "", "Replay images from a directory instead of a camera")
	static := flag.Bool("static", false, "Use the synthetic frame source (no camera needed)")
	interval := flag.Duration("interval", 200*time.Millisecond, "Frame capture interval")
	conf := flag.Float64("conf", 0.25, "Detection confidence threshold")
	iou := flag.Float64("iou", 0.45, "Detection NMS IoU threshold")
	imgsz := flag.Int("imgsz", 640, "Backend inference image size")
	maxDet := flag.Int("max-det", 0, "Max detections per frame (0 = backend default)")
	trackIoU := flag.Float64("track-iou", track.DefaultConfig().IoUThreshold, "Tracker match IoU threshold")
	smoothing := flag.Float64("smoothing", track.DefaultConfig().SmoothingFactor, "Box smoothing factor (0-1], 1 disables smoothing)")
	dashboard := flag.String("dashboard", config.Env("ARGUS_DASHBOARD", config.DefaultDashboardPort), "Dashboard port")
	noDashboard := flag.Bool("no-dashboard", false, "Disable the dashboard server")
	noVoice := flag.Bool("no-voice", false, "Disable the voice agent (vision only)")
	voiceName := flag.String("voice", "", "Agent voice (cedar, marin, alloy, echo, shimmer)")
	promptName := flag.String("prompt", config.Env("ARGUS_PROMPT", ""), "Load voice instructions from the prompt store by name")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	ilog.Init(level)

	apiKey := config.APIKey()

	source, sourceDesc, err := openSource(*cameraID, *images, *static)
	if err != nil {
		log.Fatalf("❌ Camera error: %v", err)
	}

	var agent voice.Agent
	if !*noVoice {
		session, err := buildVoice(*server, apiKey, *voiceName, *promptName)
		if err != nil {
			log.Fatalf("❌ Voice error: %v", err)
		}
		agent = session
	}

	port := *dashboard
	if *noDashboard {
		port = ""
	}

	trackCfg := track.DefaultConfig()
	trackCfg.IoUThreshold = *trackIoU
	trackCfg.SmoothingFactor = *smoothing

	a, err := app.New(app.Config{
		Source:          source,
		Agent:           agent,
		ServerURL:       *server,
		Token:           apiKey,
		CaptureInterval: *interval,
		Params: detect.Params{
			Conf:      *conf,
			IoU:       *iou,
			ImageSize: *imgsz,
			MaxDet:    *maxDet,
		},
		Track:         trackCfg,
		DashboardPort: port,
	})
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	defer a.Shutdown()

	fmt.Println("🔭 Argus Realtime Vision Client")
	fmt.Printf("   Backend:   %s\n", *server)
	fmt.Printf("   Source:    %s\n", sourceDesc)
	if port != "" {
		fmt.Printf("   Dashboard: http://localhost:%s\n", port)
	} else {
		fmt.Println("   Dashboard: disabled")
	}
	if agent != nil {
		fmt.Println("   Voice:     enabled")
	} else {
		fmt.Println("   Voice:     disabled")
	}
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ Pipeline error: %v", err)
	}
	fmt.Println("\n👋 Goodbye!")
}

// openSource picks the frame source. A replay directory wins over the
// synthetic source, which wins over a real camera.
func openSource(cameraID int, images string, static bool) (camera.FrameSource, string, error) {
	switch {
	case images != "":
		src, err := camera.OpenFiles(images, camera.DefaultConfig().Quality)
		if err != nil {
			return nil, "", err
		}
		return src, fmt.Sprintf("replay %s", images), nil
	case static:
		return camera.NewStatic(640, 480), "synthetic 640x480", nil
	default:
		cfg := camera.DefaultConfig()
		cfg.DeviceID = cameraID
		src, err := camera.OpenDevice(cfg)
		if err != nil {
			return nil, "", err
		}
		return src, fmt.Sprintf("camera %d (%dx%d)", cameraID, cfg.Width, cfg.Height), nil
	}
}

// buildVoice assembles the realtime session. Instructions come from
// the prompt store when a name is given, otherwise from the built-in
// default.
func buildVoice(server, apiKey, voiceName, promptName string) (*voice.Session, error) {
	instructions := defaultInstructions
	if promptName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		p, err := prompts.NewClient(server, apiKey).FindByName(ctx, promptName)
		if err != nil {
			return nil, fmt.Errorf("load prompt %q: %w", promptName, err)
		}
		instructions = p.Content
		fmt.Printf("📋 Loaded prompt %q (id %d)\n", p.Name, p.ID)
	}

	opts := []voice.Option{voice.WithInstructions(instructions)}
	if voiceName != "" {
		opts = append(opts, voice.WithVoice(voiceName))
	}
	return voice.NewSession(voice.NewBackendTokenSource(server, apiKey), opts...)
}
