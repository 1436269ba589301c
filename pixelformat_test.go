package rfbenc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func solidRGBA(w, h int, r, g, b, a byte) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = r, g, b, a
	}
	return out
}

func TestTranslateLengthInvariant(t *testing.T) {
	formats := []*PixelFormat{RGBA32(), BGRA32(), RGB888(), RGB565(), RGB555(), RGB332()}
	for _, pf := range formats {
		rgba := solidRGBA(10, 7, 12, 34, 56, 255)
		out, err := pf.Translate(rgba, 10, 7)
		require.NoError(t, err)
		require.Len(t, out, 10*7*pf.BytesPerPixel())
	}
}

// Translate quantizes each channel to the target format's bit depth
// and packs/serializes it little-endian, independent of source alpha.
func TestTranslateRGB565QuantizesAndPacksLittleEndian(t *testing.T) {
	pf := RGB565()
	rgba := solidRGBA(8, 8, 10, 20, 30, 255)
	out, err := pf.Translate(rgba, 8, 8)
	require.NoError(t, err)
	require.Len(t, out, 128)

	rq := uint32(10) * uint32(pf.RedMax) / 255
	gq := uint32(20) * uint32(pf.GreenMax) / 255
	bq := uint32(30) * uint32(pf.BlueMax) / 255
	word := pf.pack(rq, gq, bq)
	require.Equal(t, uint32(0x0883), word)

	for i := 0; i < 64; i++ {
		require.Equal(t, byte(word&0xFF), out[i*2])
		require.Equal(t, byte(word>>8), out[i*2+1])
	}
}

func TestTranslateRejectsIndexedFormat(t *testing.T) {
	pf := &PixelFormat{BitsPerPixel: 8, TrueColor: false}
	_, err := pf.Translate(solidRGBA(2, 2, 1, 2, 3, 255), 2, 2)
	require.Error(t, err)
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, InvalidFormat, encErr.Kind)
}

func TestTranslateInputTooShort(t *testing.T) {
	pf := RGBA32()
	_, err := pf.Translate(make([]byte, 4), 4, 4)
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, InputTooShort, encErr.Kind)
}

func TestCPixelSizeDerivedFromMasks(t *testing.T) {
	require.Equal(t, 3, RGBA32().CPixelSize(), "32bpp 8-8-8 true color leaves one unused byte")
	require.Equal(t, 2, RGB565().CPixelSize(), "16bpp formats are never CPIXEL-compactable")

	fullyPacked := &PixelFormat{BitsPerPixel: 32, TrueColor: true, RedMax: 1023, GreenMax: 2047, BlueMax: 2047,
		RedShift: 22, GreenShift: 11, BlueShift: 0}
	require.Equal(t, 4, fullyPacked.CPixelSize())
}

func TestCPixelRoundTrip(t *testing.T) {
	for _, pf := range []*PixelFormat{RGBA32(), BGRA32(), RGB565(), RGB555()} {
		word := pf.QuantizeRGBA8(200, 100, 50)
		cpx := pf.CPixelSize()
		buf := make([]byte, cpx)
		pf.PutCPixel(buf, word)
		got := pf.GetCPixel(buf)
		require.Equal(t, word, got, "format bpp=%d", pf.BitsPerPixel)
	}
}
