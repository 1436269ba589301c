// Package rfbenc encodes rectangles of RGBA pixel data into the wire
// format of the RFB (RFC 6143) rectangle encodings: Raw, RRE, CoRRE,
// Hextile, Zlib, Tight, ZlibHex, ZRLE, ZYWRLE, and the TightPng
// extension. It does not implement the RFB handshake, SetEncodings
// negotiation, FramebufferUpdate framing, transport, or any other
// session-layer concern — those are external collaborators per the
// library's scope.
package rfbenc

import (
	"fmt"

	"github.com/bigangryrobot/go-rfbenc/encodingtype"
)

// Request is the input to a single Encode call: a rectangle of source
// RGBA pixels, the client's declared PixelFormat and JPEG quality, and
// whatever persistent compressor state this encoding needs. The
// compression level itself is not a per-call knob — it is fixed when
// Stream/TightStreams are constructed, since a deflate stream can't
// change its level mid-session without a reset. The caller owns RGBA
// and Stream/Tight; Encode borrows them and mutates Stream/Tight in
// place.
type Request struct {
	// RGBA holds exactly Width*Height*4 bytes (or more) of row-major
	// R,G,B,A source pixels for the rectangle being encoded.
	RGBA   []byte
	Width  int
	Height int

	// Format is the client's declared on-wire PixelFormat.
	Format *PixelFormat

	// Quality (0-9) gates Tight's JPEG quality selection and sets
	// ZYWRLE's quantization strength; unused by every other encoding.
	Quality int

	// Stream is the single persistent deflate context used by Zlib,
	// ZlibHex, ZRLE and ZYWRLE. Nil for stateless encodings.
	Stream *PersistentStream

	// TightStreams is Tight's four-context compressor set. Nil for
	// every encoding except Tight.
	TightStreams *TightCompressorSet

	// EnableJPEG gates Tight's JPEG mode: when false, Tight never
	// selects JPEG mode regardless of quality.
	EnableJPEG bool
}

// Encoder is the polymorphic contract every encoding in this package
// implements: callers select an Encoder by encodingtype.ID and are
// otherwise indifferent to which one they hold.
type Encoder interface {
	ID() encodingtype.ID
	Encode(req *Request) ([]byte, error)
}

// EncodedRect is one rectangle of a multi-rectangle encode result:
// coordinates plus its independently encoded byte payload.
type EncodedRect struct {
	X, Y, W, H int
	Data       []byte
}

// Registry returns a fresh set of stateless encoders keyed by
// encoding ID, for callers that want to dispatch dynamically rather
// than calling EncodeRaw/EncodeZRLE/... directly. Zlib-family and
// Tight encoders still require the caller to populate
// Request.Stream/Request.TightStreams appropriately before calling
// Encode — the registry only selects which byte layout to produce.
func Registry() map[encodingtype.ID]Encoder {
	return map[encodingtype.ID]Encoder{
		encodingtype.Raw:      RawEncoder{},
		encodingtype.RRE:      RREEncoder{},
		encodingtype.CoRRE:    CoRREEncoder{},
		encodingtype.Hextile:  HextileEncoder{},
		encodingtype.Zlib:     ZlibEncoder{},
		encodingtype.Tight:    TightEncoder{},
		encodingtype.ZlibHex:  ZlibHexEncoder{},
		encodingtype.ZRLE:     ZRLEEncoder{},
		encodingtype.ZYWRLE:   ZYWRLEEncoder{},
		encodingtype.TightPng: TightPngEncoder{},
	}
}

// EncodeRects splits a (possibly large) w×h region into tileSize×tileSize
// blocks (edge blocks clipped to the true remaining dimensions) and
// encodes each with enc independently, returning the union of
// rectangles that tiles the input. Useful for callers that want
// bounded per-call allocation rather than one allocation for the whole
// framebuffer; any Encoder can be driven this way; Tight sessions
// typically use it to keep each rectangle's JPEG/palette decision
// local to a reasonably sized block.
func EncodeRects(enc Encoder, rgba []byte, w, h, tileSize int, req *Request) ([]EncodedRect, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("rfbenc: EncodeRects: tileSize must be positive")
	}
	if err := checkInput("EncodeRects", rgba, w, h); err != nil {
		return nil, err
	}
	var rects []EncodedRect
	for _, t := range partitionTiles(w, h, tileSize) {
		sub := make([]byte, t.W*t.H*4)
		for row := 0; row < t.H; row++ {
			srcOff := ((t.Y+row)*w + t.X) * 4
			dstOff := row * t.W * 4
			copy(sub[dstOff:dstOff+t.W*4], rgba[srcOff:srcOff+t.W*4])
		}
		subReq := *req
		subReq.RGBA = sub
		subReq.Width = t.W
		subReq.Height = t.H
		data, err := enc.Encode(&subReq)
		if err != nil {
			return nil, err
		}
		rects = append(rects, EncodedRect{X: t.X, Y: t.Y, W: t.W, H: t.H, Data: data})
	}
	return rects, nil
}
