package cartpole

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
)

const (
	ViewportW float64 = 600
	ViewportH float64 = 400

	cartW     float64 = 50
	cartH     float64 = 30
	poleW     float64 = 10
	trackY    float64 = 300
	worldSpan float64 = 2 * PositionBounds
)

// FrameRenderer draws Cartpole states as PNG frames into a directory.
// Frames are numbered consecutively, starting from 0.
type FrameRenderer struct {
	dir   string
	frame int

	skyShade   color.Color
	trackShade color.Color
	cartShade  color.Color
	poleShade  color.Color
	axleShade  color.Color
}

// NewFrameRenderer returns a new FrameRenderer which saves frames in
// dir, creating it if needed
func NewFrameRenderer(dir string) (*FrameRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newFrameRenderer: could not create "+
			"directory: %v", err)
	}

	return &FrameRenderer{
		dir:        dir,
		skyShade:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
		trackShade: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		cartShade:  color.RGBA{R: 77, G: 77, B: 128, A: 255},
		poleShade:  color.RGBA{R: 204, G: 153, B: 102, A: 255},
		axleShade:  color.RGBA{R: 128, G: 102, B: 230, A: 255},
	}, nil
}

// Frames returns the number of frames rendered so far
func (f *FrameRenderer) Frames() int {
	return f.frame
}

// Render draws state and saves it as the next frame
func (f *FrameRenderer) Render(state *mat.VecDense) error {
	scale := ViewportW / worldSpan
	poleLen := scale * 2 * HalfPoleLength

	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(f.skyShade)
	dc.Clear()

	// Track
	dc.SetColor(f.trackShade)
	dc.SetLineWidth(1.0)
	dc.DrawLine(0, trackY, ViewportW, trackY)
	dc.Stroke()

	// Cart
	cartX := state.AtVec(0)*scale + ViewportW/2
	dc.SetColor(f.cartShade)
	dc.DrawRectangle(cartX-cartW/2, trackY-cartH/2, cartW, cartH)
	dc.Fill()

	// Pole, rotated about the axle. An angle of 0 points straight up.
	dc.Push()
	dc.RotateAbout(state.AtVec(2), cartX, trackY-cartH/4)
	dc.SetColor(f.poleShade)
	dc.DrawRectangle(cartX-poleW/2, trackY-cartH/4-poleLen, poleW, poleLen)
	dc.Fill()
	dc.Pop()

	dc.SetColor(f.axleShade)
	dc.DrawCircle(cartX, trackY-cartH/4, poleW/2)
	dc.Fill()

	filename := filepath.Join(f.dir, fmt.Sprintf("frame_%06d.png", f.frame))
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("render: could not save frame: %v", err)
	}
	f.frame++
	return nil
}
