package rfbenc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// At quality 9 every Haar level's quantization threshold is 0
// (zywreThreshold), so zywreTransformTile is a lossless round-trip and
// EncodeZYWRLE's tile stream is exactly what EncodeZRLE would have
// produced for the same pixels: decoding it with the ZRLE tile decoder
// must recover the original pixels exactly.
func TestZYWRLEQuality9IsLosslessAndZRLEEquivalent(t *testing.T) {
	pf := RGBA32()
	w, h := 100, 75
	rgba := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			rgba[i*4] = byte(x * 255 / (w - 1))
			rgba[i*4+1] = byte(y * 255 / (h - 1))
			rgba[i*4+2] = byte((x + y) * 255 / (w + h - 2))
			rgba[i*4+3] = 255
		}
	}

	stream, err := NewPersistentStream(6)
	require.NoError(t, err)
	out, err := EncodeZYWRLE(rgba, w, h, pf, 9, stream)
	require.NoError(t, err)

	words, err := decodeZRLEWords(out, w, h, pf)
	require.NoError(t, err)

	raw, err := EncodeRaw(rgba, w, h, pf)
	require.NoError(t, err)
	want, err := decodeRawWords(raw, w, h, pf)
	require.NoError(t, err)
	require.Equal(t, want, words)
}

// Lower quality settings quantize the Haar detail subbands, so output
// need not be pixel-exact, but the transform must still produce a
// valid, decodable ZRLE tile stream of the right dimensions.
func TestZYWRLELowQualityStillProducesDecodableTiles(t *testing.T) {
	pf := RGBA32()
	w, h := 96, 64
	rgba := randomRGBA(w, h, 31)

	stream, err := NewPersistentStream(6)
	require.NoError(t, err)
	out, err := EncodeZYWRLE(rgba, w, h, pf, 3, stream)
	require.NoError(t, err)

	words, err := decodeZRLEWords(out, w, h, pf)
	require.NoError(t, err)
	require.Len(t, words, w*h)
}

// Tile-boundary dimensions (not multiples of ZRLE's 64x64 tile size)
// must encode without panicking or corrupting the tile partition,
// mirroring TestZRLETileBoundaries for the transform ZYWRLE adds on
// top.
func TestZYWRLETileBoundaries(t *testing.T) {
	pf := RGBA32()
	stream, err := NewPersistentStream(6)
	require.NoError(t, err)
	for _, dims := range [][2]int{{17, 17}, {100, 75}, {128, 128}, {1, 1}} {
		rgba := randomRGBA(dims[0], dims[1], 9)
		out, err := EncodeZYWRLE(rgba, dims[0], dims[1], pf, 9, stream)
		require.NoError(t, err)
		require.NotEmpty(t, out)
	}
}

func TestZYWRLEEncoderID(t *testing.T) {
	require.Equal(t, encodingtype.ZYWRLE, ZYWRLEEncoder{}.ID())
}
