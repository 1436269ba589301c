package rfbenc

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// Tight's compression-control byte nibble values (bits 4-7). Bits 0-3
// carry the four streams' reset flags and are always 0 here: sessions
// rely on deflate's own adaptive behavior rather than forced resets.
const (
	tightCtrlBasic    = 0x00 // copy, no filter, stream 0
	tightCtrlMono     = 0x50 // filter flag set, stream 1 (palette filter, 2 entries)
	tightCtrlIndexed  = 0x60 // filter flag set, stream 2 (palette filter, 3-256 entries)
	tightCtrlGradient = 0x70 // filter flag set, stream 3 (gradient filter)
	tightCtrlFill     = 0x80
	tightCtrlJPEG     = 0x90

	tightFilterPalette  = 1
	tightFilterGradient = 2
)

// TightEncoder implements the Tight encoding (ID 7): a compression-
// control byte selecting fill/JPEG/mono/indexed/gradient/basic mode,
// TPIXEL-serialized pixels, and one of four persistent deflate
// streams.
type TightEncoder struct{}

func (TightEncoder) ID() encodingtype.ID { return encodingtype.Tight }

func EncodeTight(rgba []byte, w, h int, pf *PixelFormat, quality int, enableJPEG bool, streams *TightCompressorSet) ([]byte, error) {
	if err := checkInput("EncodeTight", rgba, w, h); err != nil {
		return nil, err
	}
	if streams == nil {
		return nil, newErr("EncodeTight", InvalidFormat, fmt.Errorf("Tight requires a TightCompressorSet"))
	}

	words := pixelWords(rgba, w, h, pf)
	pal, ok := buildPalette(words, 256)

	if ok && pal.len() == 1 {
		glog.V(2).Infof("rfbenc: Tight selected fill for %dx%d", w, h)
		return encodeTightFill(words[0], pf), nil
	}

	paletteSuitable := ok && pal.len() <= 24
	if enableJPEG && quality <= 9 && !paletteSuitable && w >= 16 && h >= 16 {
		if data, err := encodeTightJPEG(rgba, w, h, quality); err == nil {
			glog.V(2).Infof("rfbenc: Tight selected JPEG for %dx%d", w, h)
			return data, nil
		}
	}

	if ok && pal.len() <= 2 {
		glog.V(2).Infof("rfbenc: Tight selected mono for %dx%d", w, h)
		return encodeTightMono(words, w, h, pf, pal, streams)
	}

	if ok && pal.len() <= 256 {
		glog.V(2).Infof("rfbenc: Tight selected indexed (%d colors) for %dx%d", pal.len(), w, h)
		return encodeTightIndexed(words, w, h, pf, pal, streams)
	}

	return encodeTightBasicOrGradient(words, w, h, pf, streams)
}

func (TightEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeTight(req.RGBA, req.Width, req.Height, req.Format, req.Quality, req.EnableJPEG, req.TightStreams)
}

func encodeTightFill(word uint32, pf *PixelFormat) []byte {
	tpx := pf.TPixelSize()
	out := make([]byte, 1, 1+tpx)
	out[0] = tightCtrlFill
	px := make([]byte, tpx)
	r, g, b := pf.DequantizeToRGB8(word)
	pf.PutTPixel(px, r, g, b)
	return append(out, px...)
}

func encodeTightJPEG(rgba []byte, w, h, quality int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcOff := y * w * 4
		copy(img.Pix[y*img.Stride:y*img.Stride+w*4], rgba[srcOff:srcOff+w*4])
	}
	q := 10*quality + 10
	if q > 100 {
		q = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, newErr("encodeTightJPEG", CompressionFailure, err)
	}
	out := []byte{tightCtrlJPEG}
	out = putCompactLength(out, buf.Len())
	return append(out, buf.Bytes()...), nil
}

func tpixelsFor(words []uint32, pf *PixelFormat) []byte {
	tpx := pf.TPixelSize()
	out := make([]byte, len(words)*tpx)
	for i, word := range words {
		r, g, b := pf.DequantizeToRGB8(word)
		pf.PutTPixel(out[i*tpx:i*tpx+tpx], r, g, b)
	}
	return out
}

func encodeTightMono(words []uint32, w, h int, pf *PixelFormat, pal *palette, streams *TightCompressorSet) ([]byte, error) {
	out := []byte{tightCtrlMono, tightFilterPalette, byte(pal.len() - 1)}
	out = append(out, tpixelsFor(pal.order, pf)...)

	bitmap := packMonoBitmap(words, w, h, pal)
	compressed, err := streams.Compress(tightStreamMono, bitmap)
	if err != nil {
		return nil, err
	}
	out = putCompactLength(out, len(compressed))
	return append(out, compressed...), nil
}

func packMonoBitmap(words []uint32, w, h int, pal *palette) []byte {
	rowBytes := (w + 7) / 8
	out := make([]byte, rowBytes*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if pal.index[words[y*w+x]] == 1 {
				out[y*rowBytes+x/8] |= 1 << uint(7-x%8)
			}
		}
	}
	return out
}

func encodeTightIndexed(words []uint32, w, h int, pf *PixelFormat, pal *palette, streams *TightCompressorSet) ([]byte, error) {
	indexedPayload := make([]byte, len(words))
	for i, word := range words {
		indexedPayload[i] = byte(pal.index[word])
	}

	out := []byte{tightCtrlIndexed, tightFilterPalette, byte(pal.len() - 1)}
	out = append(out, tpixelsFor(pal.order, pf)...)
	compressed, err := streams.Compress(tightStreamIndexed, indexedPayload)
	if err != nil {
		return nil, err
	}
	out = putCompactLength(out, len(compressed))
	return append(out, compressed...), nil
}

func encodeTightBasicOrGradient(words []uint32, w, h int, pf *PixelFormat, streams *TightCompressorSet) ([]byte, error) {
	basicPayload := tpixelsFor(words, pf)
	gradientPayload := gradientResidual(words, w, h, pf)

	if estimateCompressedSize(gradientPayload, streams.level) < estimateCompressedSize(basicPayload, streams.level) {
		compressed, err := streams.Compress(tightStreamGradient, gradientPayload)
		if err != nil {
			return nil, err
		}
		out := []byte{tightCtrlGradient, tightFilterGradient}
		out = putCompactLength(out, len(compressed))
		glog.V(2).Infof("rfbenc: Tight selected gradient for %dx%d", w, h)
		return append(out, compressed...), nil
	}

	compressed, err := streams.Compress(tightStreamBasic, basicPayload)
	if err != nil {
		return nil, err
	}
	out := []byte{tightCtrlBasic}
	out = putCompactLength(out, len(compressed))
	glog.V(2).Infof("rfbenc: Tight selected basic for %dx%d", w, h)
	return append(out, compressed...), nil
}

// estimateCompressedSize dry-runs a one-shot deflate pass purely to
// compare candidate payload sizes; it never touches a session's
// persistent streams, since compressing through those would advance
// state for whichever candidate loses the comparison.
func estimateCompressedSize(data []byte, level int) int {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, clampLevel(level))
	if err != nil {
		return len(data)
	}
	zw.Write(data)
	zw.Close()
	return buf.Len()
}

// gradientResidual implements Tight's Paeth-like gradient filter: per
// component, predict from left, above, and above-left neighbors, clamp
// to [0,255], and emit the residual pixel-minus-prediction mod 256.
// The clamp must happen before the subtraction, not after, or the
// residual wraps incorrectly near the image edges.
func gradientResidual(words []uint32, w, h int, pf *PixelFormat) []byte {
	tpx := pf.TPixelSize()
	rs, gs, bs := make([]uint8, w*h), make([]uint8, w*h), make([]uint8, w*h)
	for i, word := range words {
		rs[i], gs[i], bs[i] = pf.DequantizeToRGB8(word)
	}
	predict := func(plane []uint8, x, y int) byte {
		var left, above, aboveLeft int
		if x > 0 {
			left = int(plane[y*w+x-1])
		}
		if y > 0 {
			above = int(plane[(y-1)*w+x])
		}
		if x > 0 && y > 0 {
			aboveLeft = int(plane[(y-1)*w+x-1])
		}
		pred := left + above - aboveLeft
		if pred < 0 {
			pred = 0
		}
		if pred > 255 {
			pred = 255
		}
		return byte(int(plane[y*w+x]) - pred)
	}
	out := make([]byte, w*h*tpx)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := predict(rs, x, y), predict(gs, x, y), predict(bs, x, y)
			pf.PutTPixel(out[(y*w+x)*tpx:(y*w+x)*tpx+tpx], r, g, b)
		}
	}
	return out
}
