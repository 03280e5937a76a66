// Package figure draws the static alignment image: the waveform, one shaded
// span per transcript segment and the segment text centered over its span.
package figure

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/codebuildervaibhav/speech-align-viz/internal/audio"
	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
)

// Options controls the canvas size. Sizes are in inches like the rest of
// the tooling; DPI converts them to pixels.
type Options struct {
	Title string
	// Width <= 0 picks min(300, duration) inches.
	Width      float64
	Height     float64
	DPI        int
	MaxWidthPx int
}

const (
	minWidthPx   = 320
	titleHeight  = 24
	axisHeight   = 34
	sidePadding  = 12
	labelPadding = 2
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	waveColor  = color.NRGBA{0x43, 0x3b, 0xe8, 0x99}
	spanColors = []color.NRGBA{
		{0xe0, 0xe7, 0xff, 0x80},
		{0xc7, 0xd2, 0xfe, 0x80},
	}
	textColor  = color.RGBA{0x1e, 0x1b, 0x4b, 0xff}
	labelBox   = color.NRGBA{0xff, 0xff, 0xff, 0xb3}
	axisColor  = color.RGBA{0x33, 0x33, 0x33, 0xff}
	titleColor = color.RGBA{0x11, 0x11, 0x11, 0xff}
)

// Size returns the canvas size in pixels for a signal of the given duration
func (o Options) Size(duration float64) (int, int) {
	dpi := o.DPI
	if dpi <= 0 {
		dpi = 100
	}
	width := o.Width
	if width <= 0 {
		width = math.Min(300, duration)
	}
	height := o.Height
	if height <= 0 {
		height = 4
	}

	w := int(math.Round(width * float64(dpi)))
	if w < minWidthPx {
		w = minWidthPx
	}
	if o.MaxWidthPx > 0 && w > o.MaxWidthPx {
		w = o.MaxWidthPx
	}
	h := int(math.Round(height * float64(dpi)))
	if h < titleHeight+axisHeight+40 {
		h = titleHeight + axisHeight + 40
	}
	return w, h
}

// RenderFile renders the figure as a PNG file at path
func RenderFile(path string, wave *audio.Waveform, segs types.Transcript, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Render(f, wave, segs, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Render writes the figure as PNG to w.
func Render(w io.Writer, wave *audio.Waveform, segs types.Transcript, opts Options) error {
	img := Draw(wave, segs, opts)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Draw renders the figure into an image.
func Draw(wave *audio.Waveform, segs types.Transcript, opts Options) *image.RGBA {
	duration := wave.Duration()
	if duration <= 0 {
		duration = segs.End()
	}
	if duration <= 0 {
		duration = 1
	}

	width, height := opts.Size(duration)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	plot := image.Rect(sidePadding, titleHeight, width-sidePadding, height-axisHeight)
	c := canvas{img: img, plot: plot, duration: duration}

	peak := wave.Peak()
	if peak <= 0 {
		peak = 1
	}

	c.waveform(wave, peak)
	for i, s := range segs {
		c.span(s, spanColors[i%len(spanColors)])
	}
	for _, s := range segs {
		c.label(s, 0.8)
	}
	c.axis()

	title := opts.Title
	if title == "" {
		title = "Audio Alignment"
	}
	c.text(title, width/2, titleHeight/2+4, titleColor)
	c.text("Time (s)", width/2, height-6, axisColor)

	return img
}

type canvas struct {
	img      *image.RGBA
	plot     image.Rectangle
	duration float64
}

// x maps seconds to a pixel column.
func (c canvas) x(t float64) int {
	return c.plot.Min.X + int(math.Round(t/c.duration*float64(c.plot.Dx())))
}

// y maps an amplitude in [-1, 1] to a pixel row.
func (c canvas) y(v float64) int {
	mid := float64(c.plot.Min.Y+c.plot.Max.Y) / 2
	return int(math.Round(mid - v*float64(c.plot.Dy())/2))
}

func (c canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

func (c canvas) waveform(wave *audio.Waveform, peak float32) {
	if len(wave.Samples) == 0 || wave.Duration() <= 0 {
		return
	}
	// columns covering the signal; the rest of the plot stays empty
	cols := c.x(wave.Duration()) - c.plot.Min.X
	if cols > c.plot.Dx() {
		cols = c.plot.Dx()
	}
	for i, span := range wave.Envelope(cols) {
		top := c.y(float64(span.Max / peak))
		bottom := c.y(float64(span.Min / peak))
		x := c.plot.Min.X + i
		c.fill(image.Rect(x, top, x+1, bottom+1), waveColor)
	}
}

func (c canvas) span(s types.Segment, col color.Color) {
	x0, x1 := c.x(s.StartTime), c.x(s.EndTime)
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if x1 == x0 {
		x1++
	}
	r := image.Rect(x0, c.plot.Min.Y, x1, c.plot.Max.Y).Intersect(c.plot)
	c.fill(r, col)
}

func (c canvas) label(s types.Segment, height float64) {
	mid := c.x((s.StartTime + s.EndTime) / 2)
	c.boxedText(s.Text, mid, c.y(height))
}

func (c canvas) boxedText(s string, cx, cy int) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	m := face.Metrics()
	asc, desc := m.Ascent.Ceil(), m.Descent.Ceil()

	x := cx - w/2
	baseline := cy + (asc-desc)/2
	box := image.Rect(x-labelPadding, baseline-asc-labelPadding, x+w+labelPadding, baseline+desc+labelPadding)
	c.fill(box.Intersect(c.plot), labelBox)

	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func (c canvas) text(s string, cx, baseline int, col color.Color) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(cx-w/2, baseline),
	}
	d.DrawString(s)
}

// axis draws the time axis with roughly one labeled tick per 80 pixels.
func (c canvas) axis() {
	y := c.plot.Max.Y
	c.fill(image.Rect(c.plot.Min.X, y, c.plot.Max.X, y+1), axisColor)

	step := tickStep(c.duration, c.plot.Dx()/80)
	for t := 0.0; t <= c.duration+1e-9; t += step {
		x := c.x(t)
		c.fill(image.Rect(x, y, x+1, y+5), axisColor)
		c.text(formatSeconds(t, step), x, y+17, axisColor)
	}
}

// tickStep picks a 1/2/5 multiple giving at most maxTicks intervals.
func tickStep(duration float64, maxTicks int) float64 {
	if maxTicks < 1 {
		maxTicks = 1
	}
	raw := duration / float64(maxTicks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * mag; step >= raw {
			return step
		}
	}
	return 10 * mag
}

func formatSeconds(t, step float64) string {
	if step >= 1 {
		return fmt.Sprintf("%.0f", t)
	}
	decimals := int(math.Ceil(-math.Log10(step)))
	return fmt.Sprintf("%.*f", decimals, t)
}
