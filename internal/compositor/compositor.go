// ABOUTME: Layered capture compositor: live frame, map inset, watermark and timestamp
// ABOUTME: Placement is a pure function of canvas size so results are reproducible

package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Placement constants. Ratios are fractions of the canvas width.
const (
	InsetRatio     = 0.25
	WatermarkRatio = 0.20
	FontRatio      = 0.02
	Padding        = 16
	PlateMargin    = 8
	PlateRadius    = 12
)

// PlateColor is the semi-transparent backing behind the map inset.
var PlateColor = color.NRGBA{R: 0, G: 0, B: 0, A: 128}

// Corner selects where the map inset is pinned.
type Corner int

const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

var cornerNames = map[Corner]string{
	BottomRight: "bottom-right",
	BottomLeft:  "bottom-left",
	TopRight:    "top-right",
	TopLeft:     "top-left",
}

func (c Corner) String() string {
	if name, ok := cornerNames[c]; ok {
		return name
	}
	return fmt.Sprintf("corner(%d)", int(c))
}

// ParseCorner converts names like "bottom-right" into a Corner.
func ParseCorner(s string) (Corner, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BottomRight, nil
	}
	for c, name := range cornerNames {
		if name == s {
			return c, nil
		}
	}
	return BottomRight, fmt.Errorf("unknown inset corner: %q", s)
}

// Watermark is the fixed glyph plus the timestamp label of one capture.
type Watermark struct {
	Glyph image.Image
	Label string
}

// Layout holds the computed placement of every layer.
type Layout struct {
	Canvas    image.Rectangle
	Plate     image.Rectangle
	Inset     image.Rectangle
	Watermark image.Rectangle
	// LabelDot is the text baseline origin.
	LabelDot image.Point
	FontSize float64
}

// ComputeLayout places the layers on a w×h canvas. glyph is the watermark
// glyph's bounds; an empty rectangle yields an empty watermark slot.
func ComputeLayout(w, h int, corner Corner, glyph image.Rectangle) Layout {
	l := Layout{Canvas: image.Rect(0, 0, w, h)}

	size := int(math.Round(float64(w) * InsetRatio))
	plate := size + 2*PlateMargin
	var px, py int
	switch corner {
	case BottomLeft:
		px, py = Padding, h-Padding-plate
	case TopRight:
		px, py = w-Padding-plate, Padding
	case TopLeft:
		px, py = Padding, Padding
	default:
		px, py = w-Padding-plate, h-Padding-plate
	}
	l.Plate = image.Rect(px, py, px+plate, py+plate)
	l.Inset = l.Plate.Inset(PlateMargin)

	if gw, gh := glyph.Dx(), glyph.Dy(); gw > 0 && gh > 0 {
		ww := int(math.Round(float64(w) * WatermarkRatio))
		wh := int(math.Round(float64(ww) * float64(gh) / float64(gw)))
		x := (w - ww) / 2
		l.Watermark = image.Rect(x, Padding, x+ww, Padding+wh)
	}

	l.FontSize = float64(w) * FontRatio
	l.LabelDot = image.Pt(Padding, h-Padding-int(math.Ceil(l.FontSize*0.25)))
	return l
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithCorner pins the map inset to the given corner.
func WithCorner(c Corner) Option {
	return func(cp *Compositor) { cp.corner = c }
}

// Compositor assembles capture images. It is safe for concurrent use.
type Compositor struct {
	corner Corner
	font   *opentype.Font
}

// New creates a compositor using the embedded Go Regular font for labels.
func New(opts ...Option) (*Compositor, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	c := &Compositor{corner: BottomRight, font: f}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Corner reports the configured inset corner.
func (c *Compositor) Corner() Corner { return c.corner }

// Compose draws the layers back to front onto a canvas the size of base.
// A nil overlay skips the inset and its plate.
func (c *Compositor) Compose(base, overlay image.Image, wm Watermark) (*image.RGBA, Layout, error) {
	if base == nil {
		return nil, Layout{}, fmt.Errorf("base frame is required")
	}
	b := base.Bounds()
	if b.Empty() {
		return nil, Layout{}, fmt.Errorf("base frame is empty")
	}

	var glyph image.Rectangle
	if wm.Glyph != nil {
		glyph = wm.Glyph.Bounds()
	}
	layout := ComputeLayout(b.Dx(), b.Dy(), c.corner, glyph)

	canvas := image.NewRGBA(layout.Canvas)
	draw.Draw(canvas, canvas.Bounds(), base, b.Min, draw.Src)

	if overlay != nil && !overlay.Bounds().Empty() {
		mask := roundedMask(layout.Plate.Dx(), layout.Plate.Dy(), PlateRadius)
		draw.DrawMask(canvas, layout.Plate, image.NewUniform(PlateColor), image.Point{}, mask, image.Point{}, draw.Over)
		draw.CatmullRom.Scale(canvas, layout.Inset, overlay, overlay.Bounds(), draw.Over, nil)
	}

	if wm.Glyph != nil && !layout.Watermark.Empty() {
		draw.CatmullRom.Scale(canvas, layout.Watermark, wm.Glyph, wm.Glyph.Bounds(), draw.Over, nil)
	}

	if wm.Label != "" {
		if err := c.drawLabel(canvas, layout, wm.Label); err != nil {
			return nil, Layout{}, err
		}
	}
	return canvas, layout, nil
}

// drawLabel renders white text over a one-pixel dark outline.
func (c *Compositor) drawLabel(dst *image.RGBA, l Layout, label string) error {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    l.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("label face: %w", err)
	}
	defer func() { _ = face.Close() }()

	d := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(color.Black)}
	for _, off := range [...]image.Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		d.Dot = fixed.P(l.LabelDot.X+off.X, l.LabelDot.Y+off.Y)
		d.DrawString(label)
	}
	d.Src = image.NewUniform(color.White)
	d.Dot = fixed.P(l.LabelDot.X, l.LabelDot.Y)
	d.DrawString(label)
	return nil
}

// roundedMask returns an anti-aliased rounded-rectangle coverage mask.
func roundedMask(w, h int, r float64) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	r = math.Min(r, math.Min(float64(w), float64(h))/2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			cx := math.Max(r, math.Min(px, float64(w)-r))
			cy := math.Max(r, math.Min(py, float64(h)-r))
			cov := r - math.Hypot(px-cx, py-cy) + 0.5
			if cov >= 1 {
				m.Pix[y*m.Stride+x] = 0xff
			} else if cov > 0 {
				m.Pix[y*m.Stride+x] = uint8(cov * 0xff)
			}
		}
	}
	return m
}

// EncodeJPEG encodes a composite for storage in a capture event.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
