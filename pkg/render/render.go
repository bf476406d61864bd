// Package render draws detection overlays onto frames: bounding
// boxes at their smoothed positions, class labels with confidence,
// and fade-in treatment for detections that just appeared. It is
// pure Go so annotated frames can be produced anywhere the pipeline
// runs, with no native imaging dependency.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/argus-vision/go-argus/pkg/detect"
)

// Config holds annotation parameters.
type Config struct {
	// LineWidth is the box outline thickness in pixels.
	LineWidth int

	// Quality is the JPEG encode quality for AnnotateJPEG.
	Quality int

	// DrawLabels toggles the class/confidence text.
	DrawLabels bool
}

// DefaultConfig returns the stock annotation parameters.
func DefaultConfig() Config {
	return Config{
		LineWidth:  2,
		Quality:    85,
		DrawLabels: true,
	}
}

// palette cycles per class ID so the same class keeps its color
// across frames.
var palette = []color.RGBA{
	{R: 52, G: 199, B: 89, A: 255},
	{R: 0, G: 122, B: 255, A: 255},
	{R: 255, G: 149, B: 0, A: 255},
	{R: 175, G: 82, B: 222, A: 255},
	{R: 255, G: 45, B: 85, A: 255},
	{R: 90, G: 200, B: 250, A: 255},
	{R: 255, G: 204, B: 0, A: 255},
	{R: 88, G: 86, B: 214, A: 255},
}

// highlightColor marks the class the voice agent asked about.
var highlightColor = color.RGBA{R: 255, G: 235, B: 59, A: 255}

// labelBackground sits behind the text for readability.
var labelBackground = color.RGBA{R: 0, G: 0, B: 0, A: 200}

// Annotator draws detections onto frames.
type Annotator struct {
	cfg  Config
	face font.Face
}

// New creates an Annotator. Zero or negative config fields fall back
// to the defaults.
func New(cfg Config) *Annotator {
	def := DefaultConfig()
	if cfg.LineWidth <= 0 {
		cfg.LineWidth = def.LineWidth
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = def.Quality
	}
	return &Annotator{
		cfg:  cfg,
		face: basicfont.Face7x13,
	}
}

// Annotate copies the frame and draws every detection onto the copy.
// Detections without a usable display box are skipped. A non-empty
// highlight label switches that class to the highlight color and a
// doubled outline.
func (a *Annotator) Annotate(frame image.Image, dets []detect.Detection, highlight string) *image.RGBA {
	bounds := frame.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, frame, bounds.Min, draw.Src)

	for _, d := range dets {
		box := d.DisplayBox()
		if !box.Valid() {
			continue
		}

		rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2))
		rect = rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}

		col := classColor(d.ClassID)
		width := a.cfg.LineWidth
		if highlight != "" && d.Label == highlight {
			col = highlightColor
			width *= 2
		}

		opacity := d.Opacity
		if opacity <= 0 || opacity > 1 {
			opacity = 1
		}
		drawCol := scaleAlpha(col, opacity)

		a.drawOutline(dst, rect, drawCol, width)
		if a.cfg.DrawLabels {
			a.drawLabel(dst, rect, d, drawCol)
		}
	}
	return dst
}

// AnnotateJPEG decodes a JPEG frame, draws the detections, and
// re-encodes the result.
func (a *Annotator) AnnotateJPEG(frame []byte, dets []detect.Detection, highlight string) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("render: decode frame: %w", err)
	}

	annotated := a.Annotate(img, dets, highlight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, annotated, &jpeg.Options{Quality: a.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("render: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawOutline paints the four edge strips of rect.
func (a *Annotator) drawOutline(dst *image.RGBA, rect image.Rectangle, col color.RGBA, width int) {
	src := image.NewUniform(col)

	top := image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width)
	bottom := image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y)
	left := image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y)
	right := image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y)

	for _, edge := range []image.Rectangle{top, bottom, left, right} {
		draw.Draw(dst, edge.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

// drawLabel paints "label 0.92" on a dark strip above the box, or
// inside it when the box touches the top edge.
func (a *Annotator) drawLabel(dst *image.RGBA, rect image.Rectangle, d detect.Detection, col color.RGBA) {
	text := d.Label
	if d.Confidence > 0 {
		text = fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
	}

	metrics := a.face.Metrics()
	textHeight := metrics.Ascent.Ceil() + metrics.Descent.Ceil()
	textWidth := font.MeasureString(a.face, text).Ceil()

	pad := 3
	stripH := textHeight + pad
	stripY := rect.Min.Y - stripH
	if stripY < dst.Bounds().Min.Y {
		stripY = rect.Min.Y
	}

	strip := image.Rect(rect.Min.X, stripY, rect.Min.X+textWidth+2*pad, stripY+stripH)
	strip = strip.Intersect(dst.Bounds())
	if strip.Empty() {
		return
	}
	draw.Draw(dst, strip, image.NewUniform(labelBackground), image.Point{}, draw.Over)

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: a.face,
		Dot: fixed.P(
			rect.Min.X+pad,
			stripY+metrics.Ascent.Ceil()+pad/2,
		),
	}
	drawer.DrawString(text)
}

func classColor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// scaleAlpha applies an opacity factor to a premultiplied color.
func scaleAlpha(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	return color.RGBA{
		R: uint8(float64(c.R) * opacity),
		G: uint8(float64(c.G) * opacity),
		B: uint8(float64(c.B) * opacity),
		A: uint8(float64(c.A) * opacity),
	}
}
