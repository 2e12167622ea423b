// Package vehicle derives descriptive vehicle attributes from image regions.
package vehicle

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// sampleStride controls how densely the region is sampled; every Nth pixel in
// both directions is enough for a dominant color vote.
const sampleStride = 4

// namedColors are the reference colors a vehicle is described with.
var namedColors = []struct {
	name string
	c    colorful.Color
}{
	{"Black", colorful.Color{R: 0.05, G: 0.05, B: 0.05}},
	{"White", colorful.Color{R: 0.95, G: 0.95, B: 0.95}},
	{"Gray", colorful.Color{R: 0.5, G: 0.5, B: 0.5}},
	{"Silver", colorful.Color{R: 0.75, G: 0.75, B: 0.78}},
	{"Red", colorful.Color{R: 0.8, G: 0.1, B: 0.1}},
	{"Blue", colorful.Color{R: 0.1, G: 0.2, B: 0.7}},
	{"Green", colorful.Color{R: 0.1, G: 0.55, B: 0.2}},
	{"Yellow", colorful.Color{R: 0.9, G: 0.8, B: 0.1}},
	{"Orange", colorful.Color{R: 0.9, G: 0.5, B: 0.1}},
	{"Brown", colorful.Color{R: 0.45, G: 0.3, B: 0.15}},
}

// DominantColor samples the region and returns the named color closest (in
// Lab space) to the most pixels. Returns "" for an empty region.
func DominantColor(img image.Image, region image.Rectangle) string {
	region = region.Intersect(img.Bounds())
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return ""
	}

	votes := make(map[string]int)
	for y := region.Min.Y; y < region.Max.Y; y += sampleStride {
		for x := region.Min.X; x < region.Max.X; x += sampleStride {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			votes[nearestName(c)]++
		}
	}

	best := ""
	bestVotes := 0
	for name, n := range votes {
		if n > bestVotes {
			best = name
			bestVotes = n
		}
	}

	return best
}

func nearestName(c colorful.Color) string {
	best := namedColors[0].name
	bestDist := c.DistanceLab(namedColors[0].c)
	for _, nc := range namedColors[1:] {
		if d := c.DistanceLab(nc.c); d < bestDist {
			best = nc.name
			bestDist = d
		}
	}
	return best
}
