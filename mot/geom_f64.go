package mot

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned area in image coordinates.
// Frame bounds are expressed as Rectangle{0, 0, width, height}.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRectFrom converts integer image rectangle
func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Contains reports whether p lies in the half-open area [X, X+Width) x [Y, Y+Height).
// NaN coordinates are never contained.
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

// ImagePoint truncates the point to integer pixel coordinates, the way trails are drawn
func (p Point) ImagePoint() image.Point {
	return image.Point{X: int(p.X), Y: int(p.Y)}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(float64(p1.X-p2.X), 2) + math.Pow(float64(p1.Y-p2.Y), 2))
}

// Distance returns euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	return euclideanDistance(p1, p2)
}
