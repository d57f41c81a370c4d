// ABOUTME: Minimal mini-map renderer drawing the live track on a plain tile
// ABOUTME: Projects points into a square view centred on the latest fix

package sim

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/harper/rotograma/internal/models"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

var (
	mapBackground = color.RGBA{R: 236, G: 233, B: 222, A: 255}
	mapGrid       = color.RGBA{R: 214, G: 210, B: 198, A: 255}
	mapRoute      = color.RGBA{R: 33, G: 99, B: 214, A: 255}
	mapPosition   = color.RGBA{R: 220, G: 38, B: 38, A: 255}
)

// TrackMap renders the track returned by points into a square image.
type TrackMap struct {
	points func() []models.TrackPoint
	size   int
	// span is the half-width of the view in degrees.
	span float64
}

// NewTrackMap creates a renderer of size×size pixels.
func NewTrackMap(points func() []models.TrackPoint, size int) *TrackMap {
	if size <= 0 {
		size = 256
	}
	return &TrackMap{points: points, size: size, span: 0.01}
}

// Center returns the latest point of the track.
func (m *TrackMap) Center() (lat, lng float64, ok bool) {
	pts := m.points()
	if len(pts) == 0 {
		return 0, 0, false
	}
	last := pts[len(pts)-1]
	return last.Latitude, last.Longitude, true
}

// Snapshot draws the route so far with the latest fix as a dot.
func (m *TrackMap) Snapshot(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, m.size, m.size))
	draw.Draw(img, img.Bounds(), image.NewUniform(mapBackground), image.Point{}, draw.Src)

	step := m.size / 4
	for i := step; i < m.size; i += step {
		for j := 0; j < m.size; j++ {
			img.SetRGBA(i, j, mapGrid)
			img.SetRGBA(j, i, mapGrid)
		}
	}

	pts := m.points()
	if len(pts) == 0 {
		return img, nil
	}

	last := pts[len(pts)-1]
	project := func(p models.TrackPoint) (float32, float32) {
		scale := float64(m.size) / (2 * m.span)
		// Longitude degrees shrink with latitude.
		x := (p.Longitude-last.Longitude)*math.Cos(last.Latitude*math.Pi/180)*scale + float64(m.size)/2
		y := (last.Latitude-p.Latitude)*scale + float64(m.size)/2
		return float32(x), float32(y)
	}

	width := float32(m.size) / 64
	if width < 2 {
		width = 2
	}

	z := vector.NewRasterizer(m.size, m.size)
	for i := 1; i < len(pts); i++ {
		x0, y0 := project(pts[i-1])
		x1, y1 := project(pts[i])
		segment(z, x0, y0, x1, y1, width)
	}
	z.Draw(img, img.Bounds(), image.NewUniform(mapRoute), image.Point{})

	cx, cy := project(last)
	z.Reset(m.size, m.size)
	disc(z, cx, cy, width*2)
	z.Draw(img, img.Bounds(), image.NewUniform(mapPosition), image.Point{})

	return img, nil
}

// segment adds a w-wide quad covering the line from (x0,y0) to (x1,y1).
func segment(z *vector.Rasterizer, x0, y0, x1, y1, w float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}

func disc(z *vector.Rasterizer, cx, cy, r float32) {
	const sides = 16
	for i := 0; i <= sides; i++ {
		a := 2 * math.Pi * float64(i) / sides
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}
