package rfbenc

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// rectRun is one maximal same-color, non-background rectangle found by
// rectCover.
type rectRun struct {
	X, Y, W, H int
	Color      uint32
}

// rectCover partitions the non-background pixels of a w×h pixel-word
// grid into maximal axis-aligned monochrome rectangles, greedily
// growing each run first along the row then down as many further rows
// match. Every non-background pixel ends up covered by exactly one run.
func rectCover(words []uint32, w, h int, bg uint32) []rectRun {
	covered := make([]bool, w*h)
	var runs []rectRun
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if covered[idx] {
				continue
			}
			c := words[idx]
			if c == bg {
				covered[idx] = true
				continue
			}
			rw := 1
			for x+rw < w && !covered[y*w+x+rw] && words[y*w+x+rw] == c {
				rw++
			}
			rh := 1
		grow:
			for y+rh < h {
				for dx := 0; dx < rw; dx++ {
					idx2 := (y+rh)*w + x + dx
					if covered[idx2] || words[idx2] != c {
						break grow
					}
				}
				rh++
			}
			for dy := 0; dy < rh; dy++ {
				for dx := 0; dx < rw; dx++ {
					covered[(y+dy)*w+x+dx] = true
				}
			}
			runs = append(runs, rectRun{X: x, Y: y, W: rw, H: rh, Color: c})
		}
	}
	return runs
}

func pixelWords(rgba []byte, w, h int, pf *PixelFormat) []uint32 {
	words := make([]uint32, w*h)
	for i := 0; i < w*h; i++ {
		src := rgba[i*4 : i*4+4]
		words[i] = pf.QuantizeRGBA8(src[0], src[1], src[2])
	}
	return words
}

// RREEncoder implements the RRE encoding (ID 2): a background pixel
// plus a list of 16-bit-coordinate subrectangles.
type RREEncoder struct{}

func (RREEncoder) ID() encodingtype.ID { return encodingtype.RRE }

func EncodeRRE(rgba []byte, w, h int, pf *PixelFormat) ([]byte, error) {
	if err := checkInput("EncodeRRE", rgba, w, h); err != nil {
		return nil, err
	}
	if w > 0xFFFF || h > 0xFFFF {
		return nil, newErr("EncodeRRE", InvalidDimensions, fmt.Errorf("w=%d h=%d exceeds 16-bit coords", w, h))
	}
	words := pixelWords(rgba, w, h, pf)
	bg := modalWord(words)
	runs := rectCover(words, w, h, bg)

	bpp := pf.BytesPerPixel()
	out := make([]byte, 0, 4+bpp+len(runs)*(bpp+8))
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(runs)))
	out = append(out, hdr[:]...)

	px := make([]byte, bpp)
	pf.PutPixel(px, bg)
	out = append(out, px...)

	for _, r := range runs {
		pf.PutPixel(px, r.Color)
		out = append(out, px...)
		var geom [8]byte
		binary.BigEndian.PutUint16(geom[0:2], uint16(r.X))
		binary.BigEndian.PutUint16(geom[2:4], uint16(r.Y))
		binary.BigEndian.PutUint16(geom[4:6], uint16(r.W))
		binary.BigEndian.PutUint16(geom[6:8], uint16(r.H))
		out = append(out, geom[:]...)
	}
	glog.V(2).Infof("rfbenc: RRE encoded %dx%d into %d subrects", w, h, len(runs))
	return out, nil
}

func (RREEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeRRE(req.RGBA, req.Width, req.Height, req.Format)
}

// CoRREEncoder implements the CoRRE encoding (ID 4): identical to RRE
// except subrectangle coordinates are 8-bit, so the caller must split
// any region wider or taller than 255 pixels.
type CoRREEncoder struct{}

func (CoRREEncoder) ID() encodingtype.ID { return encodingtype.CoRRE }

func EncodeCoRRE(rgba []byte, w, h int, pf *PixelFormat) ([]byte, error) {
	if err := checkInput("EncodeCoRRE", rgba, w, h); err != nil {
		return nil, err
	}
	if w > 255 || h > 255 {
		return nil, newErr("EncodeCoRRE", CoordinateOverflow, fmt.Errorf("rectangle %dx%d exceeds CoRRE's 255x255 limit; caller must split", w, h))
	}
	words := pixelWords(rgba, w, h, pf)
	bg := modalWord(words)
	runs := rectCover(words, w, h, bg)

	for _, r := range runs {
		if r.W > 255 || r.H > 255 {
			return nil, newErr("EncodeCoRRE", CoordinateOverflow, fmt.Errorf("subrect %dx%d exceeds 8-bit coords", r.W, r.H))
		}
	}

	bpp := pf.BytesPerPixel()
	out := make([]byte, 0, 4+bpp+len(runs)*(bpp+4))
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(runs)))
	out = append(out, hdr[:]...)

	px := make([]byte, bpp)
	pf.PutPixel(px, bg)
	out = append(out, px...)

	for _, r := range runs {
		pf.PutPixel(px, r.Color)
		out = append(out, px...)
		out = append(out, byte(r.X), byte(r.Y), byte(r.W), byte(r.H))
	}
	glog.V(2).Infof("rfbenc: CoRRE encoded %dx%d into %d subrects", w, h, len(runs))
	return out, nil
}

func (CoRREEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeCoRRE(req.RGBA, req.Width, req.Height, req.Format)
}
