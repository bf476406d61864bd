// Command detect runs one-shot object detection against the backend
// REST API. Useful for checking the backend and tuning thresholds
// before starting the full pipeline.
//
// Usage:
//
//	detect photo.jpg                 # detect objects in a local image
//	detect -url https://…/cat.jpg    # let the backend fetch the image
//	detect -conf 0.5 -json photo.jpg # raw JSON at higher confidence
//	detect -health                   # backend health probe
//	detect -stats                    # backend runtime stats
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/argus-vision/go-argus/internal/config"
	"github.com/argus-vision/go-argus/pkg/detect"
)

func main() {
	server := flag.String("server", config.ServerURL(), "Detection backend URL")
	imageURL := flag.String("url", "", "Detect from an image URL instead of a local file")
	conf := flag.Float64("conf", 0.25, "Confidence threshold")
	iou := flag.Float64("iou", 0.45, "NMS IoU threshold")
	imgsz := flag.Int("imgsz", 640, "Inference image size")
	maxDet := flag.Int("max-det", 0, "Max detections (0 = backend default)")
	normalize := flag.Bool("normalize", false, "Return 0..1 coordinates instead of pixels")
	asJSON := flag.Bool("json", false, "Print the raw JSON response")
	health := flag.Bool("health", false, "Probe backend health and exit")
	stats := flag.Bool("stats", false, "Print backend runtime stats and exit")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Parse()

	client := detect.NewClient(*server, config.APIKey())
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch {
	case *health:
		probeHealth(ctx, client)
	case *stats:
		printStats(ctx, client)
	default:
		params := detect.Params{Conf: *conf, IoU: *iou, ImageSize: *imgsz, MaxDet: *maxDet, Normalize: *normalize}
		runDetect(ctx, client, *imageURL, params, *asJSON)
	}
}

func probeHealth(ctx context.Context, client *detect.Client) {
	info, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("❌ Backend unreachable: %v", err)
	}
	fmt.Printf("✅ Backend %s\n", info.Status)
	fmt.Printf("   Model:  %s\n", info.Model)
	fmt.Printf("   Device: %s\n", info.Device)
}

func printStats(ctx context.Context, client *detect.Client) {
	stats, err := client.Stats(ctx)
	if err != nil {
		log.Fatalf("❌ Stats request failed: %v", err)
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("📊 Backend stats")
	for _, k := range keys {
		fmt.Printf("   %-24s %v\n", k, stats[k])
	}
}

func runDetect(ctx context.Context, client *detect.Client, imageURL string, params detect.Params, asJSON bool) {
	var (
		result *detect.Result
		err    error
	)
	switch {
	case imageURL != "":
		result, err = client.DetectURL(ctx, imageURL, params)
	case flag.NArg() == 1:
		var image []byte
		image, err = os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Fatalf("❌ Read image: %v", err)
		}
		result, err = client.Detect(ctx, image, params)
	default:
		fmt.Fprintln(os.Stderr, "usage: detect [flags] image.jpg (or -url, -health, -stats)")
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ Detection failed: %v", err)
	}

	if asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("❌ Encode result: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("🔎 %d object(s) in %.1f ms (%dx%d)\n",
		len(result.Detections), result.LatencyMS, result.Image.Width, result.Image.Height)
	coord := "(%.0f, %.0f) - (%.0f, %.0f)"
	if params.Normalize {
		coord = "(%.3f, %.3f) - (%.3f, %.3f)"
	}
	for _, wd := range result.Detections {
		d := wd.Detection()
		fmt.Printf("   %-14s %5.1f%%  "+coord+"\n",
			d.Label, d.Confidence*100, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
}
