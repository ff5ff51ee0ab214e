package gif

import (
	"image"
	"image/gif"
	"io"

	"github.com/gorgonia/digitnet"
	"github.com/gorgonia/digitnet/internal/render"
	"golang.org/x/image/font"
)

// Encoder collects misclassified samples as frames of an animated GIF. It satisfies
// digitnet.OutputEncoder. Frames are kept in memory until Flush.
type Encoder struct {
	io.Writer

	Scale     int // size of a pixel in the output
	Delay     int // per frame, in 100ths of a second
	MaxFrames int // 0 keeps every frame

	face font.Face
	out  *gif.GIF
}

// NewGifEncoder creates an Encoder that writes into w when flushed.
func NewGifEncoder(w io.Writer, scale int) *Encoder {
	return &Encoder{
		Writer: w,
		Scale:  scale,
		Delay:  100,
		face:   render.Face(),
		out:    &gif.GIF{LoopCount: 0},
	}
}

// Encode appends one frame.
func (enc *Encoder) Encode(m digitnet.Misclassified) error {
	if enc.MaxFrames > 0 && len(enc.out.Image) >= enc.MaxFrames {
		return nil
	}
	im := render.Digit(enc.face, m.Pixels, m.Width, m.Height, enc.Scale, m.Want, m.Caption())
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, enc.Delay)
	return nil
}

// Len is the number of frames collected so far.
func (enc *Encoder) Len() int { return len(enc.out.Image) }

// Flush writes the gif into the writer. Nothing is written if there are no frames.
func (enc *Encoder) Flush() error {
	if len(enc.out.Image) == 0 {
		return nil
	}
	var bounds image.Rectangle
	for _, im := range enc.out.Image {
		bounds = bounds.Union(im.Bounds())
	}
	enc.out.Config = image.Config{
		ColorModel: render.Palette,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}
	return gif.EncodeAll(enc.Writer, enc.out)
}
