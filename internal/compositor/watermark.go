// ABOUTME: Watermark glyph loading and the built-in text badge
// ABOUTME: Timestamp labels for captures are formatted here too

package compositor

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder for glyph files
	_ "image/png"  // register decoder for glyph files
	"os"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LabelLayout is the timestamp format drawn on captures.
const LabelLayout = "2006-01-02 15:04:05"

// TimestampLabel formats the capture-request instant for the label layer.
func TimestampLabel(t time.Time) string {
	return t.Format(LabelLayout)
}

// LoadGlyph decodes a PNG or JPEG watermark glyph from disk.
func LoadGlyph(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("open watermark: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode watermark: %w", err)
	}
	return img, nil
}

// TextGlyph renders text as a translucent badge usable as a watermark glyph.
func (c *Compositor) TextGlyph(text string) (image.Image, error) {
	const size = 48.0
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("glyph face: %w", err)
	}
	defer func() { _ = face.Close() }()

	advance := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	w := advance + 2*Padding
	h := (m.Ascent + m.Descent).Ceil() + Padding

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	mask := roundedMask(w, h, PlateRadius)
	draw.DrawMask(img, img.Bounds(), image.NewUniform(color.NRGBA{A: 96}), image.Point{}, mask, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 220}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(Padding), Y: m.Ascent + fixed.I(Padding/2)},
	}
	d.DrawString(text)
	return img, nil
}
