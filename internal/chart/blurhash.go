package chart

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// blurHashSize bounds the thumbnail the hash is computed from. A placeholder
// needs no more detail than this.
const blurHashSize = 64

// BlurHash returns a compact placeholder string for img, suitable for showing
// while the full chart loads.
func BlurHash(img image.Image) (string, error) {
	// 4 horizontal, 3 vertical components fit the landscape charts.
	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// thumbnail scales img to fit blurHashSize, keeping its aspect ratio.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}

	var dw, dh int
	if w > h {
		dw, dh = blurHashSize, max(h*blurHashSize/w, 1)
	} else {
		dw, dh = max(w*blurHashSize/h, 1), blurHashSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
