package rfbenc

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

const zrleTileSize = 64

// ZRLEEncoder implements the ZRLE encoding (ID 16): 64x64 tiles, each
// independently choosing raw/solid/packed-palette/plain-RLE/palette-RLE,
// pixels written as CPIXELs, the whole concatenated tile stream passed
// through one persistent deflate stream with a u32 length prefix.
type ZRLEEncoder struct{}

func (ZRLEEncoder) ID() encodingtype.ID { return encodingtype.ZRLE }

func EncodeZRLE(rgba []byte, w, h int, pf *PixelFormat, stream *PersistentStream) ([]byte, error) {
	body, err := zrleTileStream(rgba, w, h, pf)
	if err != nil {
		return nil, err
	}
	compressed, err := stream.Compress(body)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4, 4+len(compressed))
	binary.BigEndian.PutUint32(out, uint32(len(compressed)))
	out = append(out, compressed...)
	glog.V(2).Infof("rfbenc: ZRLE encoded %dx%d: %d tile bytes -> %d compressed", w, h, len(body), len(compressed))
	return out, nil
}

func (ZRLEEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeZRLE(req.RGBA, req.Width, req.Height, req.Format, req.Stream)
}

// zrleTileStream builds the uncompressed concatenation of every tile's
// subencoding byte plus payload, in row-major tile order. Shared with
// ZYWRLE, which transforms pixels before handing them to this function.
func zrleTileStream(rgba []byte, w, h int, pf *PixelFormat) ([]byte, error) {
	if err := checkInput("zrleTileStream", rgba, w, h); err != nil {
		return nil, err
	}
	var out []byte
	for _, t := range partitionTiles(w, h, zrleTileSize) {
		words := make([]uint32, t.W*t.H)
		for row := 0; row < t.H; row++ {
			for col := 0; col < t.W; col++ {
				px := rgbaPixelAt(rgba, w*4, t.X+col, t.Y+row)
				words[row*t.W+col] = pf.QuantizeRGBA8(px[0], px[1], px[2])
			}
		}
		tileBytes, err := encodeZRLETile(words, t.W, t.H, pf)
		if err != nil {
			return nil, err
		}
		out = append(out, tileBytes...)
	}
	return out, nil
}

type colorRun struct {
	Color uint32
	Len   int
}

func scanRuns(words []uint32) []colorRun {
	var runs []colorRun
	for _, w := range words {
		if len(runs) > 0 && runs[len(runs)-1].Color == w {
			runs[len(runs)-1].Len++
			continue
		}
		runs = append(runs, colorRun{Color: w, Len: 1})
	}
	return runs
}

func appendRunLength(dst []byte, length int) []byte {
	l := length - 1
	for l >= 255 {
		dst = append(dst, 255)
		l -= 255
	}
	return append(dst, byte(l))
}

func packedPaletteBitsPerIndex(size int) int {
	switch {
	case size <= 2:
		return 1
	case size <= 4:
		return 2
	default:
		return 4
	}
}

func encodeRawTile(words []uint32, w, h int, pf *PixelFormat) []byte {
	cpx := pf.CPixelSize()
	out := make([]byte, 1, 1+len(words)*cpx)
	out[0] = 0
	for _, word := range words {
		var px [4]byte
		pf.PutCPixel(px[:cpx], word)
		out = append(out, px[:cpx]...)
	}
	return out
}

func encodeSolidTile(color uint32, pf *PixelFormat) []byte {
	cpx := pf.CPixelSize()
	out := make([]byte, 1, 1+cpx)
	out[0] = 1
	var px [4]byte
	pf.PutCPixel(px[:cpx], color)
	return append(out, px[:cpx]...)
}

func encodePackedPaletteTile(words []uint32, w, h int, pal *palette, pf *PixelFormat) []byte {
	cpx := pf.CPixelSize()
	size := pal.len()
	bits := packedPaletteBitsPerIndex(size)
	out := make([]byte, 1, 1+size*cpx+h*((w*bits+7)/8))
	out[0] = byte(size)
	for _, word := range pal.order {
		var px [4]byte
		pf.PutCPixel(px[:cpx], word)
		out = append(out, px[:cpx]...)
	}
	for row := 0; row < h; row++ {
		var cur byte
		used := 0
		for col := 0; col < w; col++ {
			idx := pal.index[words[row*w+col]]
			cur = (cur << uint(bits)) | byte(idx)
			used += bits
			if used == 8 {
				out = append(out, cur)
				cur, used = 0, 0
			}
		}
		if used > 0 {
			cur <<= uint(8 - used)
			out = append(out, cur)
		}
	}
	return out
}

func encodePlainRLETile(words []uint32, pf *PixelFormat) []byte {
	cpx := pf.CPixelSize()
	out := make([]byte, 1)
	out[0] = 128
	for _, r := range scanRuns(words) {
		var px [4]byte
		pf.PutCPixel(px[:cpx], r.Color)
		out = append(out, px[:cpx]...)
		out = appendRunLength(out, r.Len)
	}
	return out
}

func encodePaletteRLETile(words []uint32, pal *palette, pf *PixelFormat) []byte {
	cpx := pf.CPixelSize()
	size := pal.len()
	out := make([]byte, 1, 1+size*cpx)
	out[0] = byte(128 + size)
	for _, word := range pal.order {
		var px [4]byte
		pf.PutCPixel(px[:cpx], word)
		out = append(out, px[:cpx]...)
	}
	for _, r := range scanRuns(words) {
		idx := byte(pal.index[r.Color])
		if r.Len == 1 {
			out = append(out, idx)
			continue
		}
		out = append(out, idx|0x80)
		out = appendRunLength(out, r.Len)
	}
	return out
}

// encodeZRLETile chooses whichever applicable subencoding produces the
// smallest output for one tile's pixel words.
func encodeZRLETile(words []uint32, w, h int, pf *PixelFormat) ([]byte, error) {
	pal, ok := buildPalette(words, 127)
	if ok && pal.len() == 1 {
		return encodeSolidTile(words[0], pf), nil
	}

	candidates := [][]byte{encodeRawTile(words, w, h, pf)}
	if len(words) > 1 {
		candidates = append(candidates, encodePlainRLETile(words, pf))
	}
	if ok && pal.len() >= 2 && pal.len() <= 16 {
		candidates = append(candidates, encodePackedPaletteTile(words, w, h, pal, pf))
	}
	if ok && pal.len() >= 2 {
		candidates = append(candidates, encodePaletteRLETile(words, pal, pf))
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) < len(best) {
			best = c
		}
	}
	return best, nil
}
