package rfbenc

import "fmt"

// Rectangle is a contiguous region of the framebuffer.
type Rectangle struct {
	X, Y, W, H uint16
}

// Area returns w*h.
func (r Rectangle) Area() int { return int(r.W) * int(r.H) }

func validateDimensions(op string, w, h int) error {
	if w <= 0 || h <= 0 {
		return newErr(op, InvalidDimensions, fmt.Errorf("w=%d h=%d", w, h))
	}
	if w > 0xFFFF || h > 0xFFFF {
		return newErr(op, InvalidDimensions, fmt.Errorf("w=%d h=%d exceeds u16 range", w, h))
	}
	return nil
}

func checkInput(op string, rgba []byte, w, h int) error {
	if err := validateDimensions(op, w, h); err != nil {
		return err
	}
	if len(rgba) < w*h*4 {
		return newErr(op, InputTooShort, fmt.Errorf("have %d bytes, need %d", len(rgba), w*h*4))
	}
	return nil
}

// tileBounds describes one tile's offset and (possibly edge-clipped)
// dimensions within a rectangle being partitioned.
type tileBounds struct {
	X, Y, W, H int
}

// partitionTiles splits a w×h region into row-major tiles of the
// given edge size, with edge tiles carrying their true, un-padded
// dimensions. Used for both ZRLE (64) and Hextile (16).
func partitionTiles(w, h, tile int) []tileBounds {
	var tiles []tileBounds
	for y := 0; y < h; y += tile {
		th := tile
		if y+th > h {
			th = h - y
		}
		for x := 0; x < w; x += tile {
			tw := tile
			if x+tw > w {
				tw = w - x
			}
			tiles = append(tiles, tileBounds{X: x, Y: y, W: tw, H: th})
		}
	}
	return tiles
}

// rgbaPixelAt returns the (R,G,B,A) bytes of the pixel at (x,y) in a
// row-major RGBA buffer whose rows are stride bytes apart.
func rgbaPixelAt(rgba []byte, stride, x, y int) []byte {
	off := y*stride + x*4
	return rgba[off : off+4]
}
