package rfbenc

import (
	"bytes"
	"compress/zlib"
	"fmt"

	"github.com/golang/glog"
)

// PersistentStream is a deflate compression context whose sliding
// window and Huffman tables survive across calls to Compress. Every
// compressed encoding (Zlib, ZlibHex, ZRLE, ZYWRLE, and each of
// Tight's four slots) owns one or more of these for the lifetime of a
// session.
type PersistentStream struct {
	level int
	buf   *bytes.Buffer
	zw    *zlib.Writer
}

// NewPersistentStream creates a stream at the given compression level
// (0-9). Level 0 still produces a valid (stored-block) deflate stream.
func NewPersistentStream(level int) (*PersistentStream, error) {
	s := &PersistentStream{level: clampLevel(level), buf: new(bytes.Buffer)}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 9 {
		return 9
	}
	return level
}

func (s *PersistentStream) reset() error {
	s.buf.Reset()
	zw, err := zlib.NewWriterLevel(s.buf, s.level)
	if err != nil {
		return newErr("PersistentStream.reset", CompressionFailure, err)
	}
	s.zw = zw
	return nil
}

// Reset discards the stream's dictionary and Huffman state (used when
// a Tight compression-control byte requests a stream reset).
func (s *PersistentStream) Reset() error {
	glog.V(3).Infof("rfbenc: resetting persistent deflate stream")
	return s.reset()
}

// Compress feeds data through the stream and sync-flushes, returning
// exactly the bytes a decoder must consume to recover data: the
// stream's dictionary carries forward to the next call.
func (s *PersistentStream) Compress(data []byte) ([]byte, error) {
	s.buf.Reset()
	if _, err := s.zw.Write(data); err != nil {
		return nil, newErr("PersistentStream.Compress", CompressionFailure, err)
	}
	if err := s.zw.Flush(); err != nil {
		return nil, newErr("PersistentStream.Compress", CompressionFailure, err)
	}
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out, nil
}

// TightCompressorSet holds Tight's four independent persistent
// compression contexts, indexed by the two stream-id bits in the
// compression-control byte.
type TightCompressorSet struct {
	level   int
	streams [4]*PersistentStream
}

// NewTightCompressorSet creates an (initially empty) four-stream set
// at the given compression level. Streams are created lazily on first
// use so that encodings which never touch a given slot (e.g. a
// session with only Fill rectangles) allocate nothing for it.
func NewTightCompressorSet(level int) *TightCompressorSet {
	return &TightCompressorSet{level: clampLevel(level)}
}

func (t *TightCompressorSet) stream(idx int) (*PersistentStream, error) {
	if idx < 0 || idx > 3 {
		return nil, newErr("TightCompressorSet.stream", InvalidFormat, fmt.Errorf("stream index %d out of range", idx))
	}
	if t.streams[idx] == nil {
		s, err := NewPersistentStream(t.level)
		if err != nil {
			return nil, err
		}
		t.streams[idx] = s
	}
	return t.streams[idx], nil
}

// ResetMask resets whichever of the four streams have their
// corresponding bit (0-3) set in mask, per the compression-control
// byte's reset bits.
func (t *TightCompressorSet) ResetMask(mask uint8) error {
	for i := 0; i < 4; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if t.streams[i] == nil {
			// Nothing allocated yet; the reset is a no-op but still
			// establishes the stream for first use.
			s, err := NewPersistentStream(t.level)
			if err != nil {
				return err
			}
			t.streams[i] = s
			continue
		}
		if err := t.streams[i].Reset(); err != nil {
			return err
		}
	}
	return nil
}

// Compress compresses data through the given stream index (0-3),
// creating the stream on first use.
func (t *TightCompressorSet) Compress(idx int, data []byte) ([]byte, error) {
	s, err := t.stream(idx)
	if err != nil {
		return nil, err
	}
	return s.Compress(data)
}

// Tight's fixed subencoding-to-stream-index mapping: each compression
// mode always uses the same slot, so a decoder never has to be told
// which stream a given control byte used.
const (
	tightStreamBasic    = 0
	tightStreamMono     = 1
	tightStreamIndexed  = 2
	tightStreamGradient = 3
)
