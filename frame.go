package framestream

import (
	"errors"
	"fmt"
	"io"

	"github.com/gstoney/framestream/record"
)

var (
	ErrNotExhausted = errors.New("not exhausted")
	ErrInvalidFrame = errors.New("invalid frame")
)

// Frame header flag bits.
const (
	flagMore   byte = 1 << 0 // another frame of the same message follows
	flagSnappy byte = 1 << 1 // payload is snappy block encoded

	knownFlags = flagMore | flagSnappy
)

type FrameHeader struct {
	More       bool
	Compressed bool
	Length     int32
}

// FrameReader wraps a source reader to provide bounded access to one wire
// frame at a time. It keeps the reader aligned on frame boundaries.
type FrameReader struct {
	src       byteReader
	remaining int32
}

func (f *FrameReader) Read(p []byte) (n int, err error) {
	if f.remaining <= 0 {
		return 0, io.EOF
	}
	if int32(len(p)) > f.remaining {
		p = p[0:f.remaining]
	}
	n, err = f.src.Read(p)
	f.remaining -= int32(n)

	if err == io.EOF && f.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return
}

func (f *FrameReader) ReadByte() (byte, error) {
	if f.remaining <= 0 {
		return 0, io.EOF
	}
	v, err := f.src.ReadByte()
	if err == nil {
		f.remaining -= 1
	} else if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return v, err
}

// Next reads the header of the following frame. A clean end of input
// before the header is reported as io.EOF.
func (f *FrameReader) Next() (h FrameHeader, err error) {
	if f.remaining > 0 {
		return h, ErrNotExhausted
	}

	flags, err := f.src.ReadByte()
	if err != nil {
		return
	}
	if flags&^knownFlags != 0 {
		return h, fmt.Errorf("%w: flags %#x", ErrInvalidFrame, flags)
	}

	h.Length, err = record.ReadVarInt(f.src)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return
	}
	if h.Length < 0 {
		return h, fmt.Errorf("%w: negative length %d", ErrInvalidFrame, h.Length)
	}

	h.More = flags&flagMore != 0
	h.Compressed = flags&flagSnappy != 0
	f.remaining = h.Length
	return
}

// Skip discards the unread payload of the current frame.
func (f *FrameReader) Skip() (n int32, err error) {
	n64, err := io.CopyN(io.Discard, f, int64(f.remaining))
	n = int32(n64)
	return
}
