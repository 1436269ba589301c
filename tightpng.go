package rfbenc

import (
	"bytes"
	"image"
	"image/png"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// TightPngEncoder implements the TightPng extension (ID -260): Tight's
// fill mode plus a PNG mode, no persistent deflate streams.
type TightPngEncoder struct{}

func (TightPngEncoder) ID() encodingtype.ID { return encodingtype.TightPng }

func EncodeTightPng(rgba []byte, w, h int, pf *PixelFormat) ([]byte, error) {
	if err := checkInput("EncodeTightPng", rgba, w, h); err != nil {
		return nil, err
	}
	words := pixelWords(rgba, w, h, pf)
	pal, ok := buildPalette(words, 1)
	if ok && pal.len() == 1 {
		glog.V(2).Infof("rfbenc: TightPng selected fill for %dx%d", w, h)
		return encodeTightFill(words[0], pf), nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcOff := y * w * 4
		copy(img.Pix[y*img.Stride:y*img.Stride+w*4], rgba[srcOff:srcOff+w*4])
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, newErr("EncodeTightPng", CompressionFailure, err)
	}
	out := []byte{tightCtrlFill | 0x20} // 0xA0: PNG mode
	out = putCompactLength(out, buf.Len())
	glog.V(2).Infof("rfbenc: TightPng selected PNG for %dx%d: %d bytes", w, h, buf.Len())
	return append(out, buf.Bytes()...), nil
}

func (TightPngEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeTightPng(req.RGBA, req.Width, req.Height, req.Format)
}
