package rfbenc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// The decoders in this file exist only to drive the round-trip
// properties in the test suite; they are not part of the public
// package and intentionally cover only the subencodings this package
// itself produces.

func wordsToRGBA(words []uint32, pf *PixelFormat) []byte {
	out := make([]byte, len(words)*4)
	for i, word := range words {
		r, g, b := pf.DequantizeToRGB8(word)
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = r, g, b, 255
	}
	return out
}

func decodeRawWords(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	bpp := pf.BytesPerPixel()
	if len(data) < w*h*bpp {
		return nil, fmt.Errorf("decodeRawWords: short input")
	}
	words := make([]uint32, w*h)
	for i := range words {
		words[i] = pf.GetPixel(data[i*bpp : i*bpp+bpp])
	}
	return words, nil
}

func decodeLengthPrefixedZlib(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("decodeLengthPrefixedZlib: short input")
	}
	n := binary.BigEndian.Uint32(data[0:4])
	if uint32(len(data)-4) < n {
		return nil, fmt.Errorf("decodeLengthPrefixedZlib: declared length exceeds input")
	}
	zr, err := zlib.NewReader(bytes.NewReader(data[4 : 4+n]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	// The encoders sync-flush and never close their streams, so the
	// payload ends without a final deflate block: running out of input
	// there is the expected end of the data, not an error.
	out, err := io.ReadAll(zr)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return out, err
}

func decodeZlibWords(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	raw, err := decodeLengthPrefixedZlib(data)
	if err != nil {
		return nil, err
	}
	return decodeRawWords(raw, w, h, pf)
}

func readRunLength(data []byte) (length, consumed int) {
	sum := 0
	i := 0
	for {
		b := int(data[i])
		sum += b
		i++
		if b < 255 {
			break
		}
	}
	return sum + 1, i
}

func decodeZRLETiles(body []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	words := make([]uint32, w*h)
	cpx := pf.CPixelSize()
	pos := 0
	for _, t := range partitionTiles(w, h, zrleTileSize) {
		if pos >= len(body) {
			return nil, fmt.Errorf("decodeZRLETiles: truncated tile stream")
		}
		sub := body[pos]
		pos++
		switch {
		case sub == 0:
			for i := 0; i < t.W*t.H; i++ {
				word := pf.GetCPixel(body[pos : pos+cpx])
				pos += cpx
				x, y := i%t.W, i/t.W
				words[(t.Y+y)*w+t.X+x] = word
			}
		case sub == 1:
			word := pf.GetCPixel(body[pos : pos+cpx])
			pos += cpx
			for y := 0; y < t.H; y++ {
				for x := 0; x < t.W; x++ {
					words[(t.Y+y)*w+t.X+x] = word
				}
			}
		case sub >= 2 && sub <= 16:
			size := int(sub)
			pal := make([]uint32, size)
			for i := 0; i < size; i++ {
				pal[i] = pf.GetCPixel(body[pos : pos+cpx])
				pos += cpx
			}
			bits := packedPaletteBitsPerIndex(size)
			rowBytes := (t.W*bits + 7) / 8
			for y := 0; y < t.H; y++ {
				rowStart := pos
				bitPos := 0
				for x := 0; x < t.W; x++ {
					byteIdx := rowStart + bitPos/8
					shift := 8 - bits - (bitPos % 8)
					idx := (body[byteIdx] >> uint(shift)) & byte((1<<uint(bits))-1)
					words[(t.Y+y)*w+t.X+x] = pal[idx]
					bitPos += bits
				}
				pos = rowStart + rowBytes
			}
		case sub == 128:
			count := 0
			for count < t.W*t.H {
				word := pf.GetCPixel(body[pos : pos+cpx])
				pos += cpx
				length, n := readRunLength(body[pos:])
				pos += n
				for i := 0; i < length; i++ {
					idx := count + i
					x, y := idx%t.W, idx/t.W
					words[(t.Y+y)*w+t.X+x] = word
				}
				count += length
			}
		case sub >= 129:
			size := int(sub) - 128
			pal := make([]uint32, size)
			for i := 0; i < size; i++ {
				pal[i] = pf.GetCPixel(body[pos : pos+cpx])
				pos += cpx
			}
			count := 0
			for count < t.W*t.H {
				idxByte := body[pos]
				pos++
				idx := idxByte & 0x7F
				length := 1
				if idxByte&0x80 != 0 {
					l, n := readRunLength(body[pos:])
					pos += n
					length = l
				}
				word := pal[idx]
				for i := 0; i < length; i++ {
					gi := count + i
					x, y := gi%t.W, gi/t.W
					words[(t.Y+y)*w+t.X+x] = word
				}
				count += length
			}
		default:
			return nil, fmt.Errorf("decodeZRLETiles: unknown subencoding %d", sub)
		}
	}
	return words, nil
}

func decodeZRLEWords(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	raw, err := decodeLengthPrefixedZlib(data)
	if err != nil {
		return nil, err
	}
	return decodeZRLETiles(raw, w, h, pf)
}

// fillRect stamps one color across a w-wide words grid, clipped to the
// grid's own bounds (a subrect can legally run past the edge of a
// CoRRE/RRE rectangle in malformed input; this package's own encoders
// never produce that, but the decoder stays defensive like its source).
func fillRect(words []uint32, w, h, x, y, rw, rh int, color uint32) {
	for dy := 0; dy < rh && y+dy < h; dy++ {
		for dx := 0; dx < rw && x+dx < w; dx++ {
			words[(y+dy)*w+x+dx] = color
		}
	}
}

// decodeRREWords reads one RRE rectangle body: a background pixel
// followed by a flat list of 16-bit-coordinate colored subrectangles.
func decodeRREWords(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	bpp := pf.BytesPerPixel()
	if len(data) < 4+bpp {
		return nil, fmt.Errorf("decodeRREWords: short input")
	}
	numSubRects := binary.BigEndian.Uint32(data[0:4])
	pos := 4
	bg := pf.GetPixel(data[pos : pos+bpp])
	pos += bpp

	words := make([]uint32, w*h)
	for i := range words {
		words[i] = bg
	}
	for i := uint32(0); i < numSubRects; i++ {
		if pos+bpp+8 > len(data) {
			return nil, fmt.Errorf("decodeRREWords: truncated subrect %d", i)
		}
		color := pf.GetPixel(data[pos : pos+bpp])
		pos += bpp
		x := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		y := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		rw := int(binary.BigEndian.Uint16(data[pos+4 : pos+6]))
		rh := int(binary.BigEndian.Uint16(data[pos+6 : pos+8]))
		pos += 8
		fillRect(words, w, h, x, y, rw, rh, color)
	}
	return words, nil
}

// decodeCoRREWords is decodeRREWords with CoRRE's 8-bit subrect
// coordinates in place of RRE's 16-bit ones.
func decodeCoRREWords(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	bpp := pf.BytesPerPixel()
	if len(data) < 4+bpp {
		return nil, fmt.Errorf("decodeCoRREWords: short input")
	}
	numSubRects := binary.BigEndian.Uint32(data[0:4])
	pos := 4
	bg := pf.GetPixel(data[pos : pos+bpp])
	pos += bpp

	words := make([]uint32, w*h)
	for i := range words {
		words[i] = bg
	}
	for i := uint32(0); i < numSubRects; i++ {
		if pos+bpp+4 > len(data) {
			return nil, fmt.Errorf("decodeCoRREWords: truncated subrect %d", i)
		}
		color := pf.GetPixel(data[pos : pos+bpp])
		pos += bpp
		x, y, rw, rh := int(data[pos]), int(data[pos+1]), int(data[pos+2]), int(data[pos+3])
		pos += 4
		fillRect(words, w, h, x, y, rw, rh, color)
	}
	return words, nil
}

// decodeHextileTiles reads a Hextile body's 16x16 tiles in the same
// row-major order encodeHextileBody writes them in, resolving each
// tile's raw/background/foreground/subrects mask and carrying
// background/foreground color forward across tiles exactly as the
// encoder does.
func decodeHextileTiles(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	bpp := pf.BytesPerPixel()
	words := make([]uint32, w*h)
	pos := 0
	var bg, fg uint32

	for _, t := range partitionTiles(w, h, hextileTileSize) {
		if pos >= len(data) {
			return nil, fmt.Errorf("decodeHextileTiles: truncated tile stream")
		}
		sub := data[pos]
		pos++

		if sub&hextileRaw != 0 {
			for i := 0; i < t.W*t.H; i++ {
				word := pf.GetPixel(data[pos : pos+bpp])
				pos += bpp
				x, y := i%t.W, i/t.W
				words[(t.Y+y)*w+t.X+x] = word
			}
			continue
		}

		if sub&hextileBackgroundSpecified != 0 {
			bg = pf.GetPixel(data[pos : pos+bpp])
			pos += bpp
		}
		if sub&hextileForegroundSpecified != 0 {
			fg = pf.GetPixel(data[pos : pos+bpp])
			pos += bpp
		}

		fillRect(words, w, h, t.X, t.Y, t.W, t.H, bg)

		if sub&hextileAnySubrects != 0 {
			numSubRects := int(data[pos])
			pos++
			for i := 0; i < numSubRects; i++ {
				color := fg
				if sub&hextileSubrectsColoured != 0 {
					color = pf.GetPixel(data[pos : pos+bpp])
					pos += bpp
				}
				xy, wh := data[pos], data[pos+1]
				pos += 2
				x := t.X + int(xy>>4)
				y := t.Y + int(xy&0x0F)
				rw := int(wh>>4) + 1
				rh := int(wh&0x0F) + 1
				fillRect(words, w, h, x, y, rw, rh, color)
			}
		}
	}
	return words, nil
}

func decodeZlibHexWords(data []byte, w, h int, pf *PixelFormat) ([]uint32, error) {
	raw, err := decodeLengthPrefixedZlib(data)
	if err != nil {
		return nil, err
	}
	return decodeHextileTiles(raw, w, h, pf)
}
