package rfbenc

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

const (
	hextileRaw                 = 1 << 0
	hextileBackgroundSpecified = 1 << 1
	hextileForegroundSpecified = 1 << 2
	hextileAnySubrects         = 1 << 3
	hextileSubrectsColoured    = 1 << 4

	hextileTileSize = 16
)

// HextileEncoder implements the Hextile encoding (ID 5): 16x16 tiles,
// each either Raw or a background/foreground-relative subrectangle
// list, with background and foreground state persisting across tiles
// within one rectangle.
type HextileEncoder struct{}

func (HextileEncoder) ID() encodingtype.ID { return encodingtype.Hextile }

// EncodeHextile writes the Hextile body for one rectangle: its 16x16
// tiles in row-major order, edge tiles clipped to their true
// dimensions.
func EncodeHextile(rgba []byte, w, h int, pf *PixelFormat) ([]byte, error) {
	body, _, err := encodeHextileBody(rgba, w, h, pf)
	return body, err
}

// encodeHextileBody is split out so ZlibHex can reuse the identical
// tile framing and compress the result as a single blob.
func encodeHextileBody(rgba []byte, w, h int, pf *PixelFormat) ([]byte, int, error) {
	if err := checkInput("EncodeHextile", rgba, w, h); err != nil {
		return nil, 0, err
	}
	bpp := pf.BytesPerPixel()

	var out []byte
	haveBg, haveFg := false, false
	var bg, fg uint32
	ntiles := 0

	for _, t := range partitionTiles(w, h, hextileTileSize) {
		ntiles++
		words := make([]uint32, t.W*t.H)
		for row := 0; row < t.H; row++ {
			for col := 0; col < t.W; col++ {
				px := rgbaPixelAt(rgba, w*4, t.X+col, t.Y+row)
				words[row*t.W+col] = pf.QuantizeRGBA8(px[0], px[1], px[2])
			}
		}

		tileBg := modalWord(words)
		runs := rectCover(words, t.W, t.H, tileBg)

		rawSize := t.W * t.H * bpp

		monoColor, monochrome := uint32(0), len(runs) > 0
		if monochrome {
			monoColor = runs[0].Color
			for _, r := range runs {
				if r.Color != monoColor {
					monochrome = false
					break
				}
			}
		}

		var subSize int
		if monochrome {
			subSize = 2 * len(runs)
		} else {
			subSize = (bpp + 2) * len(runs)
		}
		var bgHdr, fgHdr int
		if !haveBg || tileBg != bg {
			bgHdr = bpp
		}
		if len(runs) > 0 && monochrome && (!haveFg || fg != monoColor) {
			fgHdr = bpp
		}
		subEncodedSize := 1 + bgHdr + fgHdr + subSize

		var sub byte
		if rawSize <= subEncodedSize {
			sub = hextileRaw
			pixels, err := pf.Translate(rawTileRGBA(rgba, w, t), t.W, t.H)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, sub)
			out = append(out, pixels...)
			haveBg, haveFg = false, false
			continue
		}

		if !haveBg || tileBg != bg {
			sub |= hextileBackgroundSpecified
		}
		if len(runs) > 0 {
			sub |= hextileAnySubrects
			if monochrome {
				if !haveFg || fg != monoColor {
					sub |= hextileForegroundSpecified
				}
			} else {
				sub |= hextileSubrectsColoured
			}
		}

		out = append(out, sub)
		if sub&hextileBackgroundSpecified != 0 {
			px := make([]byte, bpp)
			pf.PutPixel(px, tileBg)
			out = append(out, px...)
			bg, haveBg = tileBg, true
		}
		if sub&hextileForegroundSpecified != 0 {
			px := make([]byte, bpp)
			pf.PutPixel(px, monoColor)
			out = append(out, px...)
			fg, haveFg = monoColor, true
		}
		if sub&hextileAnySubrects != 0 {
			out = append(out, byte(len(runs)))
			for _, r := range runs {
				if sub&hextileSubrectsColoured != 0 {
					px := make([]byte, bpp)
					pf.PutPixel(px, r.Color)
					out = append(out, px...)
				}
				out = append(out, byte((r.X<<4)|r.Y), byte(((r.W-1)<<4)|(r.H-1)))
			}
		}
	}
	glog.V(2).Infof("rfbenc: Hextile encoded %dx%d across %d tiles", w, h, ntiles)
	return out, ntiles, nil
}

func rawTileRGBA(rgba []byte, stride int, t tileBounds) []byte {
	out := make([]byte, t.W*t.H*4)
	for row := 0; row < t.H; row++ {
		srcOff := ((t.Y+row)*stride + t.X) * 4
		dstOff := row * t.W * 4
		copy(out[dstOff:dstOff+t.W*4], rgba[srcOff:srcOff+t.W*4])
	}
	return out
}

func (HextileEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeHextile(req.RGBA, req.Width, req.Height, req.Format)
}

// ZlibHexEncoder implements the ZlibHex encoding (ID 8): Hextile's
// exact tile framing, with the whole body passed through one
// persistent deflate stream rather than sent raw.
type ZlibHexEncoder struct{}

func (ZlibHexEncoder) ID() encodingtype.ID { return encodingtype.ZlibHex }

func EncodeZlibHex(rgba []byte, w, h int, pf *PixelFormat, stream *PersistentStream) ([]byte, error) {
	body, _, err := encodeHextileBody(rgba, w, h, pf)
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
	return out, nil
}

func (ZlibHexEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeZlibHex(req.RGBA, req.Width, req.Height, req.Format, req.Stream)
}
