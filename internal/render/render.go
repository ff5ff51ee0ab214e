// Package render draws digit samples with a caption underneath. It backs the
// GIF and MJPEG viewers.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

const (
	dpi        = 72.0
	fontsize   = 12.0
	lineheight = 1.2
	pad        = 4
	markerSize = 2
)

var regular *truetype.Font

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// Marker is the palette index of the marker color.
const Marker = 256 - 1

// Palette is a 255 step gray ramp followed by red for markers.
var Palette = func() color.Palette {
	p := make(color.Palette, 0, 256)
	for i := 0; i < 255; i++ {
		v := uint8(i * 255 / 254)
		p = append(p, color.Gray{v})
	}
	return append(p, color.RGBA{R: 0xff, A: 0xff})
}()

// Face returns a new font face for captions. A face is not safe for concurrent use.
func Face() font.Face {
	return truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
}

func lineHeight() int { return int(math.Ceil(fontsize * lineheight * dpi / 72)) }

// Digit draws a w×h grid of intensities in [0, 1], each cell scale pixels wide,
// with marks markers along the top edge and caption written underneath.
// Missing pixels are drawn black; values are clamped to [0, 1].
func Digit(face font.Face, pixels []float32, w, h, scale, marks int, caption string) *image.Paletted {
	if scale < 1 {
		scale = 1
	}
	d := font.Drawer{Src: image.Black, Face: face}
	dy := lineHeight()
	width := w*scale + 2*pad
	if tw := d.MeasureString(caption).Ceil() + 2*pad; tw > width {
		width = tw
	}
	height := h*scale + dy + 3*pad

	im := image.NewPaletted(image.Rect(0, 0, width, height), Palette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)

	left := (width - w*scale) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v float32
			if i := y*w + x; i < len(pixels) {
				v = pixels[i]
			}
			idx := grayIndex(v)
			r := image.Rect(left+x*scale, pad+y*scale, left+(x+1)*scale, pad+(y+1)*scale)
			draw.Draw(im, r, &image.Uniform{Palette[idx]}, image.Point{}, draw.Src)
		}
	}
	for i := 0; i < marks; i++ {
		x := left + i*2*markerSize
		if x+markerSize > left+w*scale {
			break
		}
		r := image.Rect(x, pad, x+markerSize, pad+markerSize)
		draw.Draw(im, r, &image.Uniform{Palette[Marker]}, image.Point{}, draw.Src)
	}

	d.Dst = im
	d.Dot = fixed.P(pad, pad+h*scale+pad+dy)
	d.DrawString(caption)
	return im
}

func grayIndex(v float32) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return Marker - 1
	}
	return int(v*float32(Marker-1) + 0.5)
}
