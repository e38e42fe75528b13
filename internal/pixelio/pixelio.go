// Package pixelio adapts decoded PNG rasters to and from the flat pixel
// cursor the container and stego packages walk bit by bit (component C3).
//
// Like the teacher's diskimage packages expose a track/sector cursor over a
// flat byte image, Cursor exposes a (pixel, channel) cursor over a flat byte
// raster, advancing in canonical channel-major, row-major order: R, G, B of
// pixel (0,0), then R, G, B of pixel (1,0), and so on.
package pixelio

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/pixsafe/pixsafe/internal/stegoerr"
)

const channelsPerPixel = 3

// Raster is a decoded image reduced to its R, G, B channels, row-major,
// channel-major: Pix[0:3] is pixel (0,0)'s R,G,B; Pix[3:6] is pixel (1,0)'s.
// Alpha, if the source had one, is preserved separately and reapplied on
// encode so a PNG round trip never changes transparency.
type Raster struct {
	Width, Height int
	Pix           []byte
	alpha         []byte // nil if the source had no alpha channel
}

// Capacity returns the number of LSB-embeddable bits this raster offers.
func (r *Raster) Capacity() uint64 {
	return uint64(len(r.Pix))
}

// Decode reads a PNG image and flattens it into a Raster.
func Decode(r io.Reader) (*Raster, error) {
	const op = "pixelio.Decode"
	img, err := png.Decode(r)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindUnsupportedImage, op, err)
	}
	return fromImage(img), nil
}

func fromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]byte, 0, w*h*channelsPerPixel)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pix = append(pix, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xFF {
				hasAlpha = true
			}
		}
	}
	if !hasAlpha {
		alpha = nil
	}
	return &Raster{Width: w, Height: h, Pix: pix, alpha: alpha}
}

// Encode writes the raster back out as a lossless PNG.
func (r *Raster) Encode(w io.Writer) error {
	const op = "pixelio.Encode"
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := 0; i < r.Width*r.Height; i++ {
		a := byte(0xFF)
		if r.alpha != nil {
			a = r.alpha[i]
		}
		off := i * 4
		src := i * channelsPerPixel
		img.Pix[off+0] = r.Pix[src+0]
		img.Pix[off+1] = r.Pix[src+1]
		img.Pix[off+2] = r.Pix[src+2]
		img.Pix[off+3] = a
	}
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	return nil
}

// Cursor walks a Raster's channel bytes one LSB at a time, tracking how many
// channel bytes have been consumed so callers can report remaining capacity
// without re-deriving it from width/height arithmetic.
type Cursor struct {
	raster *Raster
	pos    int
}

// NewCursor returns a Cursor positioned at the first channel byte.
func NewCursor(r *Raster) *Cursor {
	return &Cursor{raster: r}
}

// Remaining reports how many more bits can be read or written.
func (c *Cursor) Remaining() uint64 {
	return uint64(len(c.raster.Pix) - c.pos)
}

// Skip advances the cursor by n bits without reading or writing them.
func (c *Cursor) Skip(n uint64) error {
	if n > c.Remaining() {
		return stegoerr.New(stegoerr.KindImageTooSmall, "pixelio.Cursor.Skip",
			"cannot skip %d bits, only %d remain", n, c.Remaining())
	}
	c.pos += int(n)
	return nil
}

// ReadBits extracts n LSBs starting at the cursor, advancing it by n.
func (c *Cursor) ReadBits(n uint64) ([]byte, error) {
	if n > c.Remaining() {
		return nil, stegoerr.New(stegoerr.KindImageTooSmall, "pixelio.Cursor.ReadBits",
			"cannot read %d bits, only %d remain", n, c.Remaining())
	}
	out := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		out[i] = c.raster.Pix[c.pos] & 1
		c.pos++
	}
	return out, nil
}

// WriteBits embeds bits (each 0 or 1) into the next len(bits) channel bytes'
// LSBs, advancing the cursor. It applies the ±1 rule: the channel value is
// left untouched if its LSB already matches, otherwise nudged by exactly 1
// (see nudge), which never wraps at the 0/255 boundary.
func (c *Cursor) WriteBits(bits []byte) error {
	n := uint64(len(bits))
	if n > c.Remaining() {
		return stegoerr.New(stegoerr.KindImageTooSmall, "pixelio.Cursor.WriteBits",
			"cannot write %d bits, only %d remain", n, c.Remaining())
	}
	for _, b := range bits {
		if b != 0 && b != 1 {
			return stegoerr.New(stegoerr.KindCorruptPayload, "pixelio.Cursor.WriteBits",
				"invalid bit value %d", b)
		}
		v := c.raster.Pix[c.pos]
		if v&1 != b {
			c.raster.Pix[c.pos] = nudge(v, b)
		}
		c.pos++
	}
	return nil
}

// nudge adjusts v by exactly 1 so its LSB becomes target: subtract 1 to
// clear the bit, add 1 to set it. Callers only invoke this when v's LSB
// already differs from target, which means v is odd when target is 0 (so
// v-1 never underflows) and even when target is 1 (so v+1 never overflows
// past 255, since 255 is odd) — the 0/255 boundary is never actually hit.
func nudge(v, target byte) byte {
	if target == 0 {
		return v - 1
	}
	return v + 1
}
