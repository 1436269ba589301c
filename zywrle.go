package rfbenc

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// ZYWRLEEncoder implements the ZYWRLE encoding (ID 17): ZRLE's exact
// tile framing, with each tile's RGB run through a reversible YUV-like
// transform and a 3-level integer Haar decomposition before
// subencoding selection, the high-frequency subbands quantized by a
// quality-dependent threshold.
type ZYWRLEEncoder struct{}

func (ZYWRLEEncoder) ID() encodingtype.ID { return encodingtype.ZYWRLE }

func EncodeZYWRLE(rgba []byte, w, h int, pf *PixelFormat, quality int, stream *PersistentStream) ([]byte, error) {
	body, err := zywreTileStream(rgba, w, h, pf, quality)
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
	glog.V(2).Infof("rfbenc: ZYWRLE encoded %dx%d at quality %d: %d tile bytes -> %d compressed", w, h, quality, len(body), len(compressed))
	return out, nil
}

func (ZYWRLEEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeZYWRLE(req.RGBA, req.Width, req.Height, req.Format, req.Quality, req.Stream)
}

func zywreTileStream(rgba []byte, w, h int, pf *PixelFormat, quality int) ([]byte, error) {
	if err := checkInput("zywreTileStream", rgba, w, h); err != nil {
		return nil, err
	}
	var out []byte
	for _, t := range partitionTiles(w, h, zrleTileSize) {
		tileRGBA := rawTileRGBA(rgba, w, tileBounds{X: t.X, Y: t.Y, W: t.W, H: t.H})
		transformed := zywreTransformTile(tileRGBA, t.W, t.H, quality)
		words := make([]uint32, t.W*t.H)
		for i := 0; i < t.W*t.H; i++ {
			words[i] = pf.QuantizeRGBA8(transformed[i*4], transformed[i*4+1], transformed[i*4+2])
		}
		tileBytes, err := encodeZRLETile(words, t.W, t.H, pf)
		if err != nil {
			return nil, err
		}
		out = append(out, tileBytes...)
	}
	return out, nil
}

// waveletPlane is one color channel's working buffer for the Haar
// pyramid, row-major at the tile's full width.
type waveletPlane struct {
	data []int32
	w    int
}

func newWaveletPlane(w, h int) *waveletPlane {
	return &waveletPlane{data: make([]int32, w*h), w: w}
}

func (p *waveletPlane) at(x, y int) int32     { return p.data[y*p.w+x] }
func (p *waveletPlane) set(x, y int, v int32) { p.data[y*p.w+x] = v }

// yuvForward is ZYWRLE's reversible YUV-like transform: Y=R+2G+B,
// U=R-B, V=-R+2G-B. Y+V is always 4G exactly, so the inverse recovers
// G losslessly regardless of Y,U,V rounding.
func yuvForward(r, g, b int) (y, u, v int) {
	y = r + 2*g + b
	u = r - b
	v = -r + 2*g - b
	return
}

func yuvInverse(y, u, v int) (r, g, b int) {
	g = (y + v) / 4
	rpb := y - 2*g
	r = (rpb + u) / 2
	b = (rpb - u) / 2
	return r, g, b
}

// haarForwardLevel applies one level of an in-place lifting Haar
// transform (horizontal then vertical) over the active aw×ah region,
// leaving LL in the top-left quadrant and the three detail subbands
// elsewhere. A trailing odd row/column passes through unchanged.
func haarForwardLevel(p *waveletPlane, aw, ah int) {
	hw, hh := aw/2, ah/2
	row := make([]int32, aw)
	for y := 0; y < ah; y++ {
		for x := 0; x < hw; x++ {
			a, b := p.at(2*x, y), p.at(2*x+1, y)
			row[x], row[hw+x] = a+b, a-b
		}
		if aw%2 == 1 {
			row[aw-1] = p.at(aw-1, y)
		}
		for x := 0; x < aw; x++ {
			p.set(x, y, row[x])
		}
	}
	col := make([]int32, ah)
	for x := 0; x < aw; x++ {
		for y := 0; y < hh; y++ {
			a, b := p.at(x, 2*y), p.at(x, 2*y+1)
			col[y], col[hh+y] = a+b, a-b
		}
		if ah%2 == 1 {
			col[ah-1] = p.at(x, ah-1)
		}
		for y := 0; y < ah; y++ {
			p.set(x, y, col[y])
		}
	}
}

func haarInverseLevel(p *waveletPlane, aw, ah int) {
	hw, hh := aw/2, ah/2
	col := make([]int32, ah)
	for x := 0; x < aw; x++ {
		for y := 0; y < hh; y++ {
			s, d := p.at(x, y), p.at(x, hh+y)
			col[2*y], col[2*y+1] = (s+d)/2, (s-d)/2
		}
		if ah%2 == 1 {
			col[ah-1] = p.at(x, ah-1)
		}
		for y := 0; y < ah; y++ {
			p.set(x, y, col[y])
		}
	}
	row := make([]int32, aw)
	for y := 0; y < ah; y++ {
		for x := 0; x < hw; x++ {
			s, d := p.at(x, y), p.at(hw+x, y)
			row[2*x], row[2*x+1] = (s+d)/2, (s-d)/2
		}
		if aw%2 == 1 {
			row[aw-1] = p.at(aw-1, y)
		}
		for x := 0; x < aw; x++ {
			p.set(x, y, row[x])
		}
	}
}

// zywreThreshold is the quality-dependent quantization threshold for
// Haar level (0 = finest detail, quantized hardest; deeper levels use
// a lighter threshold). At quality 9 every level's threshold is 0, so
// the transform is lossless and output is ZRLE-equivalent.
func zywreThreshold(level, quality int) int {
	base := [3]int{32, 16, 8}
	if quality < 0 {
		quality = 0
	}
	if quality > 9 {
		quality = 9
	}
	return base[level] * (9 - quality) / 9
}

func quantizeCoeff(v, threshold int) int {
	if threshold <= 0 {
		return v
	}
	sign := 1
	if v < 0 {
		sign, v = -1, -v
	}
	return sign * (v / threshold) * threshold
}

func quantizeLevel(p *waveletPlane, aw, ah, threshold int) {
	if threshold <= 0 {
		return
	}
	hw, hh := aw/2, ah/2
	for y := 0; y < ah; y++ {
		for x := 0; x < aw; x++ {
			if x < hw && y < hh {
				continue
			}
			p.set(x, y, int32(quantizeCoeff(int(p.at(x, y)), threshold)))
		}
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// zywreTransformTile runs the YUV transform, 3-level Haar quantization,
// and inverse transform over one tile's 8-bit RGBA pixels (alpha
// passed through unchanged).
func zywreTransformTile(rgba []byte, w, h, quality int) []byte {
	yP, uP, vP := newWaveletPlane(w, h), newWaveletPlane(w, h), newWaveletPlane(w, h)
	for i := 0; i < w*h; i++ {
		y, u, v := yuvForward(int(rgba[i*4]), int(rgba[i*4+1]), int(rgba[i*4+2]))
		yP.data[i], uP.data[i], vP.data[i] = int32(y), int32(u), int32(v)
	}

	type dims struct{ aw, ah int }
	var levels []dims
	aw, ah := w, h
	for level := 0; level < 3 && aw >= 2 && ah >= 2; level++ {
		haarForwardLevel(yP, aw, ah)
		haarForwardLevel(uP, aw, ah)
		haarForwardLevel(vP, aw, ah)
		levels = append(levels, dims{aw, ah})
		th := zywreThreshold(level, quality)
		quantizeLevel(yP, aw, ah, th)
		quantizeLevel(uP, aw, ah, th)
		quantizeLevel(vP, aw, ah, th)
		aw, ah = aw/2, ah/2
	}
	for i := len(levels) - 1; i >= 0; i-- {
		haarInverseLevel(yP, levels[i].aw, levels[i].ah)
		haarInverseLevel(uP, levels[i].aw, levels[i].ah)
		haarInverseLevel(vP, levels[i].aw, levels[i].ah)
	}

	out := make([]byte, len(rgba))
	copy(out, rgba)
	for i := 0; i < w*h; i++ {
		r, g, b := yuvInverse(int(yP.data[i]), int(uP.data[i]), int(vP.data[i]))
		out[i*4], out[i*4+1], out[i*4+2] = clampByte(r), clampByte(g), clampByte(b)
	}
	return out
}
