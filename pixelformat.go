package rfbenc

import (
	"encoding/binary"
	"fmt"
)

// PixelFormat describes the on-wire representation of one pixel, per
// RFC 6143 §7.4.
type PixelFormat struct {
	BitsPerPixel uint8
	Depth        uint8
	BigEndian    bool
	TrueColor    bool

	RedMax, GreenMax, BlueMax          uint16
	RedShift, GreenShift, BlueShift    uint8
}

// BytesPerPixel is bits_per_pixel/8, the on-wire width of a normal
// (non-compact) pixel in this format.
func (pf *PixelFormat) BytesPerPixel() int {
	return int(pf.BitsPerPixel) / 8
}

// validate enforces this package's InvalidFormat conditions: true-color
// only, no overlapping channel masks, and a supported bpp.
func (pf *PixelFormat) validate() error {
	if !pf.TrueColor {
		return newErr("PixelFormat.validate", InvalidFormat, fmt.Errorf("indexed-color server output is not supported"))
	}
	switch pf.BitsPerPixel {
	case 8, 16, 24, 32:
	default:
		return newErr("PixelFormat.validate", InvalidFormat, fmt.Errorf("unsupported bits_per_pixel %d", pf.BitsPerPixel))
	}
	rMask := uint32(pf.RedMax) << pf.RedShift
	gMask := uint32(pf.GreenMax) << pf.GreenShift
	bMask := uint32(pf.BlueMax) << pf.BlueShift
	if rMask&gMask != 0 || rMask&bMask != 0 || gMask&bMask != 0 {
		return newErr("PixelFormat.validate", InvalidFormat, fmt.Errorf("overlapping channel masks"))
	}
	return nil
}

func (pf *PixelFormat) order() binary.ByteOrder {
	if pf.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// pack converts one quantized (R,G,B) triple (already scaled to this
// format's *_max ranges) into the pixel word used by Translate/PutPixel.
// For 32-bpp formats, any byte the channel masks don't reach is filled
// with 1 bits rather than left at zero, matching the padding value
// real RGBX/BGRX wire formats use for their unused byte.
func (pf *PixelFormat) pack(r, g, b uint32) uint32 {
	word := (r << pf.RedShift) | (g << pf.GreenShift) | (b << pf.BlueShift)
	if pf.BitsPerPixel == 32 {
		used := (uint32(pf.RedMax) << pf.RedShift) | (uint32(pf.GreenMax) << pf.GreenShift) | (uint32(pf.BlueMax) << pf.BlueShift)
		word |= ^used
	}
	return word
}

// PutPixel serializes one already-packed pixel word into dst (which
// must be BytesPerPixel() long), in this format's byte order.
func (pf *PixelFormat) PutPixel(dst []byte, word uint32) {
	switch pf.BitsPerPixel {
	case 8:
		dst[0] = byte(word)
	case 16:
		pf.order().PutUint16(dst, uint16(word))
	case 24:
		if pf.BigEndian {
			dst[0], dst[1], dst[2] = byte(word>>16), byte(word>>8), byte(word)
		} else {
			dst[0], dst[1], dst[2] = byte(word), byte(word>>8), byte(word>>16)
		}
	case 32:
		pf.order().PutUint32(dst, word)
	}
}

// GetPixel is the inverse of PutPixel, used by the test decoders.
func (pf *PixelFormat) GetPixel(src []byte) uint32 {
	switch pf.BitsPerPixel {
	case 8:
		return uint32(src[0])
	case 16:
		return uint32(pf.order().Uint16(src))
	case 24:
		if pf.BigEndian {
			return uint32(src[0])<<16 | uint32(src[1])<<8 | uint32(src[2])
		}
		return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
	case 32:
		return pf.order().Uint32(src)
	}
	return 0
}

// Channels unpacks a pixel word back into the format's quantized
// (R,G,B) triple.
func (pf *PixelFormat) Channels(word uint32) (r, g, b uint32) {
	r = (word >> pf.RedShift) & uint32(pf.RedMax)
	g = (word >> pf.GreenShift) & uint32(pf.GreenMax)
	b = (word >> pf.BlueShift) & uint32(pf.BlueMax)
	return
}

// QuantizeRGBA8 converts one 8-bit-per-channel (R,G,B) triple (alpha
// discarded) into the packed pixel word for this format, scaling each
// channel as `R' = (R * red_max) / 255` and similarly for G, B.
func (pf *PixelFormat) QuantizeRGBA8(r, g, b uint8) uint32 {
	rq := uint32(r) * uint32(pf.RedMax) / 255
	gq := uint32(g) * uint32(pf.GreenMax) / 255
	bq := uint32(b) * uint32(pf.BlueMax) / 255
	return pf.pack(rq, gq, bq)
}

// CPixelSize returns the ZRLE compact-pixel width for this format:
// 3 bytes when bits_per_pixel==32 and true-color and one edge byte of the
// pixel word carries no channel bits, else the normal pixel width.
// Always derived from the channel masks here, never hardcoded: a fixed
// 3-byte assumption breaks the moment a 32-bpp format actually uses all
// four bytes.
func (pf *PixelFormat) CPixelSize() int {
	if pf.BitsPerPixel != 32 || !pf.TrueColor {
		return pf.BytesPerPixel()
	}
	used := (uint32(pf.RedMax) << pf.RedShift) | (uint32(pf.GreenMax) << pf.GreenShift) | (uint32(pf.BlueMax) << pf.BlueShift)
	if used&0xFF000000 == 0 || used&0x000000FF == 0 {
		return 3
	}
	return 4
}

// TPixelSize returns the Tight compact-pixel width: 3 bytes for 32-bpp
// true-color with 8-bit RGB components (R,G,B order regardless of the
// format's shifts), else equal to a normal pixel.
func (pf *PixelFormat) TPixelSize() int {
	if pf.BitsPerPixel == 32 && pf.RedMax == 255 && pf.GreenMax == 255 && pf.BlueMax == 255 {
		return 3
	}
	return pf.BytesPerPixel()
}

// DequantizeToRGB8 is the inverse of QuantizeRGBA8: given a packed
// pixel word, it reconstructs the 8-bit-per-channel RGB triple this
// format's quantization collapsed the source color to. Used by
// encodings (Tight, gradient prediction) that need to re-derive a
// representative 8-bit color from an already-quantized pixel value.
func (pf *PixelFormat) DequantizeToRGB8(word uint32) (r, g, b uint8) {
	rq, gq, bq := pf.Channels(word)
	if pf.RedMax > 0 {
		r = uint8(rq * 255 / uint32(pf.RedMax))
	}
	if pf.GreenMax > 0 {
		g = uint8(gq * 255 / uint32(pf.GreenMax))
	}
	if pf.BlueMax > 0 {
		b = uint8(bq * 255 / uint32(pf.BlueMax))
	}
	return
}

// PutTPixel writes one pixel in TPIXEL form.
func (pf *PixelFormat) PutTPixel(dst []byte, r, g, b uint8) {
	if pf.TPixelSize() == 3 {
		dst[0], dst[1], dst[2] = r, g, b
		return
	}
	word := pf.QuantizeRGBA8(r, g, b)
	pf.PutPixel(dst, word)
}

// PutCPixel writes one pixel word in CPIXEL form: the same bytes as a
// normal pixel, minus whichever single byte carries no channel bits.
func (pf *PixelFormat) PutCPixel(dst []byte, word uint32) {
	size := pf.CPixelSize()
	if size == pf.BytesPerPixel() {
		pf.PutPixel(dst, word)
		return
	}
	var full [4]byte
	pf.order().PutUint32(full[:], word)
	if pf.BigEndian {
		// MSB-first: the unused byte is whichever edge carries no mask bits.
		used := (uint32(pf.RedMax) << pf.RedShift) | (uint32(pf.GreenMax) << pf.GreenShift) | (uint32(pf.BlueMax) << pf.BlueShift)
		if used&0xFF000000 == 0 {
			copy(dst, full[1:4])
		} else {
			copy(dst, full[0:3])
		}
	} else {
		used := (uint32(pf.RedMax) << pf.RedShift) | (uint32(pf.GreenMax) << pf.GreenShift) | (uint32(pf.BlueMax) << pf.BlueShift)
		if used&0x000000FF == 0 {
			copy(dst, full[1:4])
		} else {
			copy(dst, full[0:3])
		}
	}
}

// GetCPixel is the inverse of PutCPixel, used by the test decoders: it
// reconstructs a pixel word from CPIXEL-sized bytes, re-inserting the
// all-ones padding pack() puts in whichever byte CPIXEL form omits.
func (pf *PixelFormat) GetCPixel(src []byte) uint32 {
	size := pf.CPixelSize()
	if size == pf.BytesPerPixel() {
		return pf.GetPixel(src)
	}
	var full [4]byte
	used := (uint32(pf.RedMax) << pf.RedShift) | (uint32(pf.GreenMax) << pf.GreenShift) | (uint32(pf.BlueMax) << pf.BlueShift)
	if pf.BigEndian {
		if used&0xFF000000 == 0 {
			copy(full[1:4], src[0:3])
		} else {
			copy(full[0:3], src[0:3])
		}
	} else {
		if used&0x000000FF == 0 {
			copy(full[1:4], src[0:3])
		} else {
			copy(full[0:3], src[0:3])
		}
	}
	return pf.order().Uint32(full[:]) | ^used
}

// Translate converts source RGBA (4 bytes per pixel, R,G,B,A,
// row-major, stride width*4) into this format's on-wire byte layout.
// Output length is always w*h*BytesPerPixel().
func (pf *PixelFormat) Translate(rgba []byte, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, newErr("Translate", InvalidDimensions, fmt.Errorf("w=%d h=%d", w, h))
	}
	if len(rgba) < w*h*4 {
		return nil, newErr("Translate", InputTooShort, fmt.Errorf("have %d bytes, need %d", len(rgba), w*h*4))
	}
	if err := pf.validate(); err != nil {
		return nil, err
	}
	bpp := pf.BytesPerPixel()
	out := make([]byte, w*h*bpp)
	for i := 0; i < w*h; i++ {
		src := rgba[i*4 : i*4+4]
		word := pf.QuantizeRGBA8(src[0], src[1], src[2])
		pf.PutPixel(out[i*bpp:i*bpp+bpp], word)
	}
	return out, nil
}

// Recognized PixelFormat constructors for the common wire formats
// clients and servers negotiate.

func RGBA32() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 32, Depth: 24, TrueColor: true, BigEndian: false,
		RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 0, GreenShift: 8, BlueShift: 16}
}

func BGRA32() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 32, Depth: 24, TrueColor: true, BigEndian: false,
		RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 16, GreenShift: 8, BlueShift: 0}
}

func RGBX32() *PixelFormat { return RGBA32() }
func BGRX32() *PixelFormat { return BGRA32() }

func RGB888() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 24, Depth: 24, TrueColor: true, BigEndian: false,
		RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 0, GreenShift: 8, BlueShift: 16}
}

func BGR888() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 24, Depth: 24, TrueColor: true, BigEndian: false,
		RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 16, GreenShift: 8, BlueShift: 0}
}

func RGB565() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 16, Depth: 16, TrueColor: true, BigEndian: false,
		RedMax: 31, GreenMax: 63, BlueMax: 31, RedShift: 11, GreenShift: 5, BlueShift: 0}
}

func BGR565() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 16, Depth: 16, TrueColor: true, BigEndian: false,
		RedMax: 31, GreenMax: 63, BlueMax: 31, RedShift: 0, GreenShift: 5, BlueShift: 11}
}

func RGB555() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 16, Depth: 15, TrueColor: true, BigEndian: false,
		RedMax: 31, GreenMax: 31, BlueMax: 31, RedShift: 10, GreenShift: 5, BlueShift: 0}
}

func BGR555() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 16, Depth: 15, TrueColor: true, BigEndian: false,
		RedMax: 31, GreenMax: 31, BlueMax: 31, RedShift: 0, GreenShift: 5, BlueShift: 10}
}

func RGB332() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 8, Depth: 8, TrueColor: true, BigEndian: false,
		RedMax: 7, GreenMax: 7, BlueMax: 3, RedShift: 5, GreenShift: 2, BlueShift: 0}
}

func BGR233() *PixelFormat {
	return &PixelFormat{BitsPerPixel: 8, Depth: 8, TrueColor: true, BigEndian: false,
		RedMax: 7, GreenMax: 7, BlueMax: 3, RedShift: 0, GreenShift: 3, BlueShift: 6}
}
