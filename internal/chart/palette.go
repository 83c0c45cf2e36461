package chart

import (
	"image/color"
	"math"
)

// Series colors use fixed saturation and lightness so bars stay readable on
// white.
const (
	seriesSaturation = 0.55
	seriesLightness  = 0.55
)

// Palette returns n colors with evenly spaced hues.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		hue := math.Mod(210+float64(i)*360/float64(max(n, 1)), 360)
		out[i] = hsl(hue, seriesSaturation, seriesLightness)
	}
	return out
}

// KeyColor returns a stable color for key, so a category keeps its color
// across charts.
func KeyColor(key string) color.RGBA {
	h := 0
	for _, c := range key {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return hsl(float64(h%360), seriesSaturation, seriesLightness)
}

// Ramp maps t in [0,1] from a pale to a deep blue. Values outside the range
// are clamped.
func Ramp(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return hsl(210, 0.35+0.4*t, 0.93-0.58*t)
}

// rampPalette samples Ramp for heatmaps.
type rampPalette int

func (n rampPalette) Colors() []color.Color {
	out := make([]color.Color, int(n))
	for i := range out {
		out[i] = Ramp(float64(i) / float64(max(int(n)-1, 1)))
	}
	return out
}

// hsl converts hue (0-360), saturation and lightness (0-1) to an opaque color.
func hsl(h, s, l float64) color.RGBA {
	h /= 360.0

	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3.0)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3.0)
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xFF}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// textOn picks black or white text for a background.
func textOn(bg color.RGBA) color.RGBA {
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > 150 {
		return ink
	}
	return white
}
