// ABOUTME: Tests for the capture compositor
// ABOUTME: Verifies layer placement, the no-map path and reproducibility

package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	blue  = color.RGBA{0, 0, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
)

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func newCompositor(t *testing.T, opts ...Option) *Compositor {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestComputeLayout_BottomRight(t *testing.T) {
	l := ComputeLayout(1280, 720, BottomRight, image.Rect(0, 0, 200, 100))

	assert.Equal(t, image.Rect(0, 0, 1280, 720), l.Canvas)
	assert.Equal(t, 320, l.Inset.Dx())
	assert.Equal(t, 320, l.Inset.Dy())
	assert.Equal(t, 320+2*PlateMargin, l.Plate.Dx())
	assert.Equal(t, 1280-Padding, l.Plate.Max.X)
	assert.Equal(t, 720-Padding, l.Plate.Max.Y)
	assert.True(t, l.Inset.In(l.Plate))

	// 20% of width, aspect preserved, centered, pinned to top padding
	assert.Equal(t, 256, l.Watermark.Dx())
	assert.Equal(t, 128, l.Watermark.Dy())
	assert.Equal(t, Padding, l.Watermark.Min.Y)
	assert.Equal(t, 1280-l.Watermark.Max.X, l.Watermark.Min.X)

	assert.InDelta(t, 25.6, l.FontSize, 1e-9)
	assert.Equal(t, Padding, l.LabelDot.X)
	assert.Less(t, l.LabelDot.Y, 720)
}

func TestComputeLayout_Corners(t *testing.T) {
	tests := []struct {
		corner Corner
		minX   int
		minY   int
	}{
		{TopLeft, Padding, Padding},
		{TopRight, 1000 - Padding - (250 + 2*PlateMargin), Padding},
		{BottomLeft, Padding, 800 - Padding - (250 + 2*PlateMargin)},
		{BottomRight, 1000 - Padding - (250 + 2*PlateMargin), 800 - Padding - (250 + 2*PlateMargin)},
	}

	for _, tt := range tests {
		t.Run(tt.corner.String(), func(t *testing.T) {
			l := ComputeLayout(1000, 800, tt.corner, image.Rectangle{})
			assert.Equal(t, image.Pt(tt.minX, tt.minY), l.Plate.Min)
			assert.True(t, l.Watermark.Empty())
		})
	}
}

func TestParseCorner(t *testing.T) {
	c, err := ParseCorner("top-left")
	require.NoError(t, err)
	assert.Equal(t, TopLeft, c)

	c, err = ParseCorner("")
	require.NoError(t, err)
	assert.Equal(t, BottomRight, c)

	_, err = ParseCorner("middle")
	assert.Error(t, err)
}

func TestCompose_AllLayers(t *testing.T) {
	c := newCompositor(t)
	base := solid(640, 360, blue)
	overlay := solid(100, 100, red)
	glyph := solid(50, 25, green)

	img, l, err := c.Compose(base, overlay, Watermark{Glyph: glyph, Label: "2024-05-01 10:00:03"})
	require.NoError(t, err)
	assert.Equal(t, base.Bounds(), img.Bounds())

	assert.Equal(t, red, img.RGBAAt(center(l.Inset).X, center(l.Inset).Y))
	assert.Equal(t, green, img.RGBAAt(center(l.Watermark).X, center(l.Watermark).Y))
	assert.Equal(t, blue, img.RGBAAt(5, 5))

	// plate margin is darkened base, not the overlay
	margin := img.RGBAAt(l.Plate.Min.X+PlateMargin/2, center(l.Plate).Y)
	assert.Less(t, margin.B, blue.B)
	assert.Zero(t, margin.R)
}

func TestCompose_WithoutOverlaySkipsInset(t *testing.T) {
	c := newCompositor(t)
	base := solid(640, 360, blue)

	img, l, err := c.Compose(base, nil, Watermark{Glyph: solid(50, 25, green)})
	require.NoError(t, err)

	assert.Equal(t, blue, img.RGBAAt(center(l.Inset).X, center(l.Inset).Y))
	assert.Equal(t, blue, img.RGBAAt(l.Plate.Min.X+PlateMargin/2, center(l.Plate).Y))
	assert.Equal(t, green, img.RGBAAt(center(l.Watermark).X, center(l.Watermark).Y))
}

func TestCompose_LabelDrawsHighContrastText(t *testing.T) {
	c := newCompositor(t)
	img, l, err := c.Compose(solid(1280, 720, blue), nil, Watermark{Label: "2024-05-01 10:00:03"})
	require.NoError(t, err)

	var white, dark int
	for y := l.LabelDot.Y - int(l.FontSize); y <= l.LabelDot.Y+2; y++ {
		for x := l.LabelDot.X; x < l.LabelDot.X+300; x++ {
			p := img.RGBAAt(x, y)
			if p.R > 240 && p.G > 240 && p.B > 240 {
				white++
			}
			if p.R < 64 && p.G < 64 && p.B < 200 {
				dark++
			}
		}
	}
	assert.Positive(t, white, "expected white label fill")
	assert.Positive(t, dark, "expected dark outline")
}

func TestCompose_Deterministic(t *testing.T) {
	c := newCompositor(t)
	base := solid(320, 180, blue)
	overlay := solid(64, 48, red)
	wm := Watermark{Glyph: solid(40, 20, green), Label: "2024-05-01 10:00:03"}

	a, _, err := c.Compose(base, overlay, wm)
	require.NoError(t, err)
	b, _, err := c.Compose(base, overlay, wm)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a.Pix, b.Pix))
}

func TestCompose_OffsetBaseBounds(t *testing.T) {
	c := newCompositor(t)
	base := solid(200, 120, blue).SubImage(image.Rect(50, 20, 150, 80))

	img, _, err := c.Compose(base, nil, Watermark{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 60), img.Bounds())
	assert.Equal(t, blue, img.RGBAAt(0, 0))
}

func TestCompose_RejectsMissingBase(t *testing.T) {
	c := newCompositor(t)
	_, _, err := c.Compose(nil, nil, Watermark{})
	assert.Error(t, err)

	_, _, err = c.Compose(image.NewRGBA(image.Rectangle{}), nil, Watermark{})
	assert.Error(t, err)
}

func TestCompose_CornerOption(t *testing.T) {
	c := newCompositor(t, WithCorner(TopLeft))
	assert.Equal(t, TopLeft, c.Corner())

	img, l, err := c.Compose(solid(400, 400, blue), solid(10, 10, red), Watermark{})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(Padding, Padding), l.Plate.Min)
	assert.Equal(t, red, img.RGBAAt(center(l.Inset).X, center(l.Inset).Y))
}

func TestRoundedMask(t *testing.T) {
	m := roundedMask(40, 30, 10)
	assert.Equal(t, uint8(0), m.AlphaAt(0, 0).A, "corner should be transparent")
	assert.Equal(t, uint8(0xff), m.AlphaAt(20, 15).A, "center should be opaque")
	assert.Equal(t, uint8(0xff), m.AlphaAt(20, 0).A, "top edge midpoint should be opaque")
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(solid(16, 16, blue), 90)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())

	_, err = EncodeJPEG(solid(4, 4, blue), 0)
	assert.NoError(t, err)
}

func TestTimestampLabel(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 3, 0, time.UTC)
	assert.Equal(t, "2024-05-01 10:00:03", TimestampLabel(at))
}

func TestTextGlyph(t *testing.T) {
	c := newCompositor(t)
	glyph, err := c.TextGlyph("ROTOGRAMA")
	require.NoError(t, err)
	assert.Greater(t, glyph.Bounds().Dx(), glyph.Bounds().Dy())
}

func TestLoadGlyph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(8, 4, green)))
	require.NoError(t, f.Close())

	img, err := LoadGlyph(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	_, err = LoadGlyph(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
