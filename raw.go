package rfbenc

import "github.com/bigangryrobot/go-rfbenc/encodingtype"

// RawEncoder implements the Raw encoding (ID 0): the translated pixel
// data with no header at all.
type RawEncoder struct{}

func (RawEncoder) ID() encodingtype.ID { return encodingtype.Raw }

// EncodeRaw translates every pixel of the w×h region and concatenates
// the bytes. Output length is always w*h*bytes_per_pixel.
func EncodeRaw(rgba []byte, w, h int, pf *PixelFormat) ([]byte, error) {
	if err := checkInput("EncodeRaw", rgba, w, h); err != nil {
		return nil, err
	}
	return pf.Translate(rgba, w, h)
}

func (RawEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeRaw(req.RGBA, req.Width, req.Height, req.Format)
}
