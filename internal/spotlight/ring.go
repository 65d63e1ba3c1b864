package spotlight

import (
	"image"
	"image/color"
	"math"
)

// Ring appearance. The stroke is hard-edged; the glow decays quadratically
// from the stroke outward.
var (
	strokeColor = color.NRGBA{R: 255, G: 214, B: 10, A: 235}
	glowColor   = color.NRGBA{R: 255, G: 214, B: 10}
)

const maxGlowAlpha = 110

// Ring renders the spotlight ring for the given radius on a transparent
// square canvas. The output is a pure function of radius: identical inputs
// produce identical pixels, which is what makes stills reproducible.
func Ring(radius int) *image.NRGBA {
	if radius < 1 {
		radius = 1
	}

	stroke := strokeWidth(radius)
	glow := glowWidth(radius)
	margin := glow + stroke
	side := 2*radius + 2*margin

	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	center := float64(side) / 2
	r := float64(radius)
	halfStroke := float64(stroke) / 2

	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx := float64(x) + 0.5 - center
			dy := float64(y) + 0.5 - center
			d := math.Sqrt(dx*dx + dy*dy)

			// Hard-edged stroke wins over glow where both apply
			if math.Abs(d-r) <= halfStroke {
				img.SetNRGBA(x, y, strokeColor)
				continue
			}

			// Glow extends outward from the stroke edge only
			out := d - (r + halfStroke)
			if out > 0 && out <= float64(glow) {
				fall := 1 - out/float64(glow)
				a := uint8(math.Round(maxGlowAlpha * fall * fall))
				if a > 0 {
					c := glowColor
					c.A = a
					img.SetNRGBA(x, y, c)
				}
			}
		}
	}

	return img
}

func strokeWidth(radius int) int {
	w := radius / 12
	if w < 3 {
		w = 3
	}
	return w
}

func glowWidth(radius int) int {
	w := radius / 3
	if w < 6 {
		w = 6
	}
	return w
}
