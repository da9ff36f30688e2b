package mot

import (
	"image/color"
	"math/rand/v2"
	"time"
)

// Palette hands out display colors for newly created tracks.
// Colors are purely cosmetic and are not required to be unique.
type Palette interface {
	Next() color.RGBA
}

// RandomPalette draws opaque colors with channels in [0, 255)
type RandomPalette struct {
	rng *rand.Rand
}

// NewRandomPalette creates palette with deterministic sequence for given seed.
// Zero seed means time based seed.
func NewRandomPalette(seed uint64) *RandomPalette {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomPalette{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns next random color
func (p *RandomPalette) Next() color.RGBA {
	return color.RGBA{
		R: uint8(p.rng.IntN(255)),
		G: uint8(p.rng.IntN(255)),
		B: uint8(p.rng.IntN(255)),
		A: 255,
	}
}

// FixedPalette always returns the same color
type FixedPalette color.RGBA

// Next returns palette's color
func (p FixedPalette) Next() color.RGBA {
	return color.RGBA(p)
}
