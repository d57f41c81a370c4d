// ABOUTME: Synthetic camera frames for simulated recordings
// ABOUTME: A moving gradient so consecutive frames differ

package sim

import (
	"image"
	"image/color"
	"sync"
)

// PatternFrames produces a fresh gradient frame on every call.
type PatternFrames struct {
	width, height int

	mu    sync.Mutex
	frame int
}

// NewPatternFrames creates a frame source of the given size.
func NewPatternFrames(width, height int) *PatternFrames {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	return &PatternFrames{width: width, height: height}
}

// Frame renders the next frame. The returned image is never touched again.
func (f *PatternFrames) Frame() (image.Image, error) {
	f.mu.Lock()
	n := f.frame
	f.frame++
	f.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	shift := n * 8
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x + shift) * 255 / (f.width + shift)),
				G: uint8(y * 200 / f.height),
				B: uint8(96 + (n*4)%128),
				A: 255,
			})
		}
	}
	return img, nil
}

// Count reports how many frames were produced.
func (f *PatternFrames) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}
