package mjpeg

import (
	"bytes"
	"image/jpeg"
	"log"
	"net/http"
	"sync"

	"github.com/gorgonia/digitnet"
	"github.com/gorgonia/digitnet/internal/render"
	"github.com/mattn/go-mjpeg"
	"golang.org/x/image/font"
)

// Encoder streams the latest misclassified sample as an MJPEG feed. It satisfies
// digitnet.OutputEncoder and http.Handler.
type Encoder struct {
	Scale int

	sync.Mutex
	stream *mjpeg.Stream
	face   font.Face
	frames int
}

func (e *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.stream.ServeHTTP(w, r)
}

// NewEncoder with the size of a pixel in the output.
func NewEncoder(scale int) *Encoder {
	return &Encoder{
		Scale:  scale,
		stream: mjpeg.NewStream(),
		face:   render.Face(),
	}
}

// Encode renders m and pushes it to every connected client.
func (enc *Encoder) Encode(m digitnet.Misclassified) error {
	enc.Lock()
	defer enc.Unlock()

	im := render.Digit(enc.face, m.Pixels, m.Width, m.Height, enc.Scale, m.Want, m.Caption())
	var b bytes.Buffer
	err := jpeg.Encode(&b, im, nil)
	if err != nil {
		log.Println(err)
		return err
	}
	err = enc.stream.Update(b.Bytes())
	if err != nil {
		log.Println(err)
		return err
	}
	enc.frames++
	return nil
}

// Frames is the number of frames pushed so far.
func (enc *Encoder) Frames() int {
	enc.Lock()
	defer enc.Unlock()
	return enc.frames
}

func (enc *Encoder) Flush() error { return nil }
