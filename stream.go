package framestream

import (
	"fmt"
	"io"
)

// Stream is a read-only, seekable view over a FrameSequence.
//
// The cursor is kept both as a global position and as a (frame, offset)
// pair. Between calls, off < FrameLen(frame) unless the stream is at its
// end, in which case frame == FrameCount() and off == 0.
//
// A Stream borrows the sequence and never copies or mutates it. It is not
// safe for concurrent use; several Streams may share one sequence.
type Stream struct {
	frames FrameSequence
	length int64

	pos   int64
	frame int
	off   int
}

// NewStream creates a Stream positioned at the start of frames.
func NewStream(frames FrameSequence) (*Stream, error) {
	if frames == nil {
		return nil, fmt.Errorf("%w: nil frame sequence", ErrInvalidInput)
	}

	s := &Stream{frames: frames}
	for i := 0; i < frames.FrameCount(); i++ {
		s.length += int64(frames.FrameLen(i))
	}
	s.skipEmpty()
	return s, nil
}

func (s *Stream) CanRead() bool  { return true }
func (s *Stream) CanSeek() bool  { return true }
func (s *Stream) CanWrite() bool { return false }

// Len returns the total length of the underlying frames.
func (s *Stream) Len() int64 {
	return s.length
}

func (s *Stream) Position() int64 {
	return s.pos
}

// PeekByte returns the byte under the cursor without advancing it.
// ok is false at end of stream.
func (s *Stream) PeekByte() (b byte, ok bool) {
	if s.frame >= s.frames.FrameCount() {
		return 0, false
	}
	return s.frames.Frame(s.frame)[s.off], true
}

// SetPosition moves the cursor to the absolute offset target.
//
// The frame pointer walks from the current frame towards target, one frame
// at a time, so nearby seeks do not rescan the sequence.
func (s *Stream) SetPosition(target int64) error {
	if target < 0 || target > s.length {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, target, s.length)
	}
	if target == s.pos {
		return nil
	}

	frame := s.frame
	base := s.pos - int64(s.off) // offset of the first byte of frame

	if target > s.pos {
		n := s.frames.FrameCount()
		for frame < n && target >= base+int64(s.frames.FrameLen(frame)) {
			base += int64(s.frames.FrameLen(frame))
			frame++
		}
	} else {
		for target < base {
			frame--
			base -= int64(s.frames.FrameLen(frame))
		}
	}

	s.pos = target
	s.frame = frame
	s.off = int(target - base)
	return nil
}

// Seek implements io.Seeker.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.length + offset
	default:
		return s.pos, fmt.Errorf("%w: whence %d", ErrInvalidInput, whence)
	}

	if err := s.SetPosition(target); err != nil {
		return s.pos, err
	}
	return s.pos, nil
}

// ReadCount copies up to count bytes into p and advances the cursor.
// It returns 0 once the stream is exhausted; running out of data is not an
// error.
func (s *Stream) ReadCount(p []byte, count int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrInvalidInput, count)
	}
	if len(p) < count {
		return 0, fmt.Errorf("%w: buffer of %d bytes for count %d", ErrInvalidInput, len(p), count)
	}
	return s.read(p[:count]), nil
}

// Read implements io.Reader. It fills p across frame boundaries and
// returns io.EOF only when no byte could be read.
func (s *Stream) Read(p []byte) (n int, err error) {
	n = s.read(p)
	if n == 0 && len(p) > 0 {
		err = io.EOF
	}
	return
}

func (s *Stream) ReadByte() (byte, error) {
	b, ok := s.PeekByte()
	if !ok {
		return 0, io.EOF
	}
	s.off++
	s.pos++
	s.skipEmpty()
	return b, nil
}

func (s *Stream) UnreadByte() error {
	if s.pos == 0 {
		return fmt.Errorf("%w: unread at start of stream", ErrOutOfRange)
	}
	return s.SetPosition(s.pos - 1)
}

// ReadAt implements io.ReaderAt. The cursor is not moved.
func (s *Stream) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfRange, off)
	}
	if off >= s.length {
		return 0, io.EOF
	}

	frame, base := s.locate(off)
	fo := int(off - base)
	for n < len(p) && frame < s.frames.FrameCount() {
		n += copy(p[n:], s.frames.Frame(frame)[fo:])
		frame++
		fo = 0
	}
	if n < len(p) {
		err = io.EOF
	}
	return
}

// WriteTo implements io.WriterTo, writing the unread bytes frame by frame.
func (s *Stream) WriteTo(w io.Writer) (n int64, err error) {
	for s.frame < s.frames.FrameCount() {
		m, werr := w.Write(s.frames.Frame(s.frame)[s.off:])
		n += int64(m)
		s.pos += int64(m)
		s.off += m
		s.skipEmpty()
		if werr != nil {
			return n, werr
		}
	}
	return n, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	return 0, ErrUnsupported
}

// Truncate always fails; the frames belong to the caller.
func (s *Stream) Truncate(size int64) error {
	return ErrUnsupported
}

// Flush is a no-op, nothing is buffered.
func (s *Stream) Flush() error {
	return nil
}

func (s *Stream) read(p []byte) int {
	n := 0
	for n < len(p) && s.frame < s.frames.FrameCount() {
		c := copy(p[n:], s.frames.Frame(s.frame)[s.off:])
		n += c
		s.off += c
		s.skipEmpty()
	}
	s.pos += int64(n)
	return n
}

// skipEmpty moves past exhausted and zero-length frames.
func (s *Stream) skipEmpty() {
	n := s.frames.FrameCount()
	for s.frame < n && s.off >= s.frames.FrameLen(s.frame) {
		s.frame++
		s.off = 0
	}
}

// locate derives the frame holding target and that frame's start offset,
// scanning from the first frame.
func (s *Stream) locate(target int64) (frame int, base int64) {
	n := s.frames.FrameCount()
	for frame < n && target >= base+int64(s.frames.FrameLen(frame)) {
		base += int64(s.frames.FrameLen(frame))
		frame++
	}
	return
}
