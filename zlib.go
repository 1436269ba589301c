package rfbenc

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// ZlibEncoder implements the Zlib encoding (ID 6): translated pixel
// data passed through one persistent deflate stream, length-prefixed.
type ZlibEncoder struct{}

func (ZlibEncoder) ID() encodingtype.ID { return encodingtype.Zlib }

func EncodeZlib(rgba []byte, w, h int, pf *PixelFormat, stream *PersistentStream) ([]byte, error) {
	raw, err := EncodeRaw(rgba, w, h, pf)
	if err != nil {
		return nil, err
	}
	compressed, err := stream.Compress(raw)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4, 4+len(compressed))
	binary.BigEndian.PutUint32(out, uint32(len(compressed)))
	out = append(out, compressed...)
	glog.V(2).Infof("rfbenc: Zlib encoded %dx%d: %d raw -> %d compressed", w, h, len(raw), len(compressed))
	return out, nil
}

func (ZlibEncoder) Encode(req *Request) ([]byte, error) {
	return EncodeZlib(req.RGBA, req.Width, req.Height, req.Format, req.Stream)
}
