// Package render draws track trails over frames and writes them out as
// animations, image sequences or trajectory plots.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/LdDl/fbtrack-go/mot"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	lineThickness = 2
	headRadius    = 3
)

var overlayTextColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// DrawTrails returns copy of the frame with trail of every active track drawn in its color,
// a dot at the head of each trail and the "t=<frame> active_tracks=<n>" caption.
func DrawTrails(frame image.Image, t int, manager *mot.TrackManager, buffer *mot.RenderBuffer) *image.RGBA {
	b := frame.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frame, b.Min, draw.Src)

	activeIDs := manager.ActiveIDs()
	for _, id := range activeIDs {
		c, ok := manager.Color(id)
		if !ok {
			continue
		}
		trail := buffer.Trail(id)
		for i := 1; i < len(trail); i++ {
			drawLine(canvas, trail[i-1].ImagePoint(), trail[i].ImagePoint(), c)
		}
		if len(trail) > 0 {
			fillCircle(canvas, trail[len(trail)-1].ImagePoint(), headRadius, c)
		}
	}
	drawCaption(canvas, fmt.Sprintf("t=%d active_tracks=%d", t, len(activeIDs)), image.Pt(10, 30))
	return canvas
}

func drawCaption(canvas *image.RGBA, text string, at image.Point) {
	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(overlayTextColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
}

// drawLine is Bresenham with square brush of lineThickness
func drawLine(canvas *image.RGBA, from, to image.Point, c color.RGBA) {
	dx := absInt(to.X - from.X)
	dy := -absInt(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	errAcc := dx + dy
	x, y := from.X, from.Y
	for {
		stamp(canvas, x, y, c)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			errAcc += dy
			x += sx
		}
		if e2 <= dx {
			errAcc += dx
			y += sy
		}
	}
}

func stamp(canvas *image.RGBA, x, y int, c color.RGBA) {
	for oy := 0; oy < lineThickness; oy++ {
		for ox := 0; ox < lineThickness; ox++ {
			p := image.Pt(x+ox-lineThickness/2, y+oy-lineThickness/2)
			if p.In(canvas.Rect) {
				canvas.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}

func fillCircle(canvas *image.RGBA, center image.Point, r int, c color.RGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			p := image.Pt(center.X+dx, center.Y+dy)
			if p.In(canvas.Rect) {
				canvas.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
