package framestream

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"testing"
)

type cursor struct {
	pos   int64
	frame int
	off   int
}

func snapshot(s *Stream) cursor {
	return cursor{s.pos, s.frame, s.off}
}

func newTestStream(t *testing.T, frames ...[]byte) *Stream {
	t.Helper()
	s, err := NewStream(NewMessage(frames...))
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	return s
}

func abcde(t *testing.T) *Stream {
	return newTestStream(t, []byte("AB"), []byte{}, []byte("CDE"))
}

// randomMessage builds a message with frames of length 0..maxLen, so that
// empty frames appear between non-empty ones.
func randomMessage(r *rand.Rand, frames, maxLen int) Message {
	m := make(Message, frames)
	for i := range m {
		m[i] = make([]byte, r.IntN(maxLen+1))
		for j := range m[i] {
			m[i][j] = byte(r.IntN(256))
		}
	}
	return m
}

// TestNewStream_Nil verifies that a nil frame sequence is rejected.
func TestNewStream_Nil(t *testing.T) {
	_, err := NewStream(nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NewStream(nil): got %v, want ErrInvalidInput", err)
	}
}

// TestStream_Capabilities verifies the readable, seekable, not writable flags.
func TestStream_Capabilities(t *testing.T) {
	s := abcde(t)
	if !s.CanRead() || !s.CanSeek() || s.CanWrite() {
		t.Errorf("capabilities: read=%t seek=%t write=%t", s.CanRead(), s.CanSeek(), s.CanWrite())
	}
}

var _ interface {
	io.ReadSeeker
	io.ReaderAt
	io.ByteScanner
	io.WriterTo
} = (*Stream)(nil)

type scenario struct {
	desc    string
	pos     int64
	count   int
	want    string
	wantPos int64
}

var abcdeTc = []scenario{
	{desc: "Read all from start", pos: 0, count: 5, want: "ABCDE", wantPos: 5},
	{desc: "Read across empty frame", pos: 2, count: 3, want: "CDE", wantPos: 5},
	{desc: "Read spanning boundary", pos: 1, count: 2, want: "BC", wantPos: 3},
	{desc: "Read exact first frame", pos: 0, count: 2, want: "AB", wantPos: 2},
	{desc: "Read more than available", pos: 3, count: 10, want: "DE", wantPos: 5},
	{desc: "Read at end", pos: 5, count: 1, want: "", wantPos: 5},
	{desc: "Read zero bytes", pos: 1, count: 0, want: "", wantPos: 1},
}

// TestStream_ReadCount covers the boundary scenarios over frames "AB", "", "CDE".
func TestStream_ReadCount(t *testing.T) {
	for _, tC := range abcdeTc {
		t.Run(tC.desc, func(t *testing.T) {
			s := abcde(t)
			if err := s.SetPosition(tC.pos); err != nil {
				t.Fatalf("SetPosition(%d): %v", tC.pos, err)
			}

			buf := make([]byte, tC.count)
			n, err := s.ReadCount(buf, tC.count)
			if err != nil {
				t.Fatalf("ReadCount: %v", err)
			}
			if got := string(buf[:n]); got != tC.want {
				t.Errorf("got %q, want %q", got, tC.want)
			}
			if s.Position() != tC.wantPos {
				t.Errorf("position: got %d, want %d", s.Position(), tC.wantPos)
			}
		})
	}
}

// TestStream_ReadCountInvalid verifies that negative counts and short
// buffers fail without moving the cursor.
func TestStream_ReadCountInvalid(t *testing.T) {
	s := abcde(t)
	s.SetPosition(1)
	before := snapshot(s)

	if _, err := s.ReadCount(make([]byte, 4), -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative count: got %v, want ErrInvalidInput", err)
	}
	if _, err := s.ReadCount(make([]byte, 2), 3); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short buffer: got %v, want ErrInvalidInput", err)
	}
	if after := snapshot(s); after != before {
		t.Errorf("cursor changed: %+v -> %+v", before, after)
	}
}

// TestStream_EndOfStream verifies the canonical end state.
func TestStream_EndOfStream(t *testing.T) {
	s := abcde(t)
	if err := s.SetPosition(s.Len()); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}

	if got := snapshot(s); got != (cursor{5, 3, 0}) {
		t.Errorf("cursor: got %+v, want {5 3 0}", got)
	}
	if _, ok := s.PeekByte(); ok {
		t.Errorf("PeekByte at end returned a byte")
	}
	for _, count := range []int{0, 1, 100} {
		n, err := s.ReadCount(make([]byte, count), count)
		if n != 0 || err != nil {
			t.Errorf("ReadCount(%d) at end: got (%d, %v), want (0, nil)", count, n, err)
		}
	}
	if n, err := s.Read(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Errorf("Read at end: got (%d, %v), want (0, EOF)", n, err)
	}
}

// TestStream_ReadExhaustsLastFrame verifies that a read ending exactly on
// the last byte leaves the cursor in the canonical end state.
func TestStream_ReadExhaustsLastFrame(t *testing.T) {
	s := newTestStream(t, []byte("AB"), []byte("CD"), []byte{})
	buf := make([]byte, 4)
	if n, _ := s.ReadCount(buf, 4); n != 4 {
		t.Fatalf("ReadCount: got %d, want 4", n)
	}
	if got := snapshot(s); got != (cursor{4, 3, 0}) {
		t.Errorf("cursor: got %+v, want {4 3 0}", got)
	}
}

// TestStream_SeekOutOfRange verifies that out of range seeks fail and leave
// the cursor untouched.
func TestStream_SeekOutOfRange(t *testing.T) {
	tcs := []struct {
		desc   string
		offset int64
		whence int
	}{
		{"Before start from current", -1, io.SeekCurrent},
		{"Past end from end", 10, io.SeekEnd},
		{"Past end from start", 6, io.SeekStart},
		{"Negative from start", -3, io.SeekStart},
		{"Before start from end", -6, io.SeekEnd},
	}

	for _, tC := range tcs {
		t.Run(tC.desc, func(t *testing.T) {
			s := abcde(t)
			before := snapshot(s)
			if _, err := s.Seek(tC.offset, tC.whence); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Seek: got %v, want ErrOutOfRange", err)
			}
			if after := snapshot(s); after != before {
				t.Errorf("cursor changed: %+v -> %+v", before, after)
			}
		})
	}
}

// TestStream_SetPositionOutOfRange verifies the setter checks from a
// position in the middle of the stream.
func TestStream_SetPositionOutOfRange(t *testing.T) {
	s := abcde(t)
	s.SetPosition(3)
	before := snapshot(s)

	for _, target := range []int64{-1, 6, 1 << 40} {
		if err := s.SetPosition(target); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetPosition(%d): got %v, want ErrOutOfRange", target, err)
		}
	}
	if after := snapshot(s); after != before {
		t.Errorf("cursor changed: %+v -> %+v", before, after)
	}
}

// TestStream_SeekInvalidWhence verifies unknown origins are rejected.
func TestStream_SeekInvalidWhence(t *testing.T) {
	s := abcde(t)
	if _, err := s.Seek(0, 7); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Seek: got %v, want ErrInvalidInput", err)
	}
}

// TestStream_SeekRoundTrip verifies Seek is idempotent for absolute targets
// and that Seek(0, Current) reports the current position.
func TestStream_SeekRoundTrip(t *testing.T) {
	s := abcde(t)
	for x := int64(0); x <= s.Len(); x++ {
		p1, err := s.Seek(x, io.SeekStart)
		if err != nil {
			t.Fatalf("Seek(%d): %v", x, err)
		}
		c1 := snapshot(s)
		p2, err := s.Seek(p1, io.SeekStart)
		if err != nil {
			t.Fatalf("Seek(%d): %v", p1, err)
		}
		if p2 != p1 || snapshot(s) != c1 {
			t.Errorf("second Seek(%d) moved the cursor", p1)
		}

		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil || cur != x {
			t.Errorf("Seek(0, Current): got (%d, %v), want %d", cur, err, x)
		}
	}

	if p, _ := s.Seek(-2, io.SeekEnd); p != 3 {
		t.Errorf("Seek(-2, End): got %d, want 3", p)
	}
	if b, ok := s.PeekByte(); !ok || b != 'D' {
		t.Errorf("PeekByte: got %q, want 'D'", b)
	}
}

// TestStream_ReadMatchesConcatenation checks every start position against
// a slice of the concatenated frames.
func TestStream_ReadMatchesConcatenation(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		m := randomMessage(r, r.IntN(8), 5)
		want := m.Bytes()

		s, err := NewStream(m)
		if err != nil {
			t.Fatalf("NewStream: %v", err)
		}
		if s.Len() != int64(len(want)) {
			t.Fatalf("Len: got %d, want %d", s.Len(), len(want))
		}

		for p := int64(0); p <= s.Len(); p++ {
			if err := s.SetPosition(p); err != nil {
				t.Fatalf("SetPosition(%d): %v", p, err)
			}
			count := int(s.Len() - p)
			buf := make([]byte, count)
			n, err := s.ReadCount(buf, count)
			if err != nil {
				t.Fatalf("ReadCount: %v", err)
			}
			if !bytes.Equal(buf[:n], want[p:]) {
				t.Fatalf("frames %v at %d: got %x, want %x", m, p, buf[:n], want[p:])
			}
		}
	}
}

// TestStream_IncrementalWalk verifies that seeking from any start position
// yields the same frame/offset pair as locating the target from frame 0,
// in both directions.
func TestStream_IncrementalWalk(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 500; i++ {
		m := randomMessage(r, 1+r.IntN(10), 4)
		s, err := NewStream(m)
		if err != nil {
			t.Fatalf("NewStream: %v", err)
		}

		for j := 0; j < 50; j++ {
			start := r.Int64N(s.Len() + 1)
			target := r.Int64N(s.Len() + 1)

			if err := s.SetPosition(start); err != nil {
				t.Fatalf("SetPosition(%d): %v", start, err)
			}
			if err := s.SetPosition(target); err != nil {
				t.Fatalf("SetPosition(%d): %v", target, err)
			}

			ref, err := NewStream(m)
			if err != nil {
				t.Fatalf("NewStream: %v", err)
			}
			frame, base := ref.locate(target)
			want := cursor{target, frame, int(target - base)}

			if got := snapshot(s); got != want {
				t.Fatalf("frames %v, %d -> %d: got %+v, want %+v", m, start, target, got, want)
			}
		}
	}
}

// TestStream_CursorInvariant drives random reads and seeks and checks the
// normalization rule after every call.
func TestStream_CursorInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 200; i++ {
		m := randomMessage(r, r.IntN(8), 6)
		s, err := NewStream(m)
		if err != nil {
			t.Fatalf("NewStream: %v", err)
		}

		for j := 0; j < 40; j++ {
			switch r.IntN(4) {
			case 0:
				s.SetPosition(r.Int64N(s.Len() + 1))
			case 1:
				count := r.IntN(8)
				s.ReadCount(make([]byte, count), count)
			case 2:
				s.ReadByte()
			case 3:
				s.UnreadByte()
			}

			var base int64
			for k := 0; k < s.frame; k++ {
				base += int64(m.FrameLen(k))
			}
			if base+int64(s.off) != s.pos {
				t.Fatalf("frames %v: cursor %+v does not decompose position", m, snapshot(s))
			}
			if s.pos == s.Len() {
				if s.frame != len(m) || s.off != 0 {
					t.Fatalf("frames %v: end cursor %+v not canonical", m, snapshot(s))
				}
			} else if s.off >= m.FrameLen(s.frame) {
				t.Fatalf("frames %v: cursor %+v points past its frame", m, snapshot(s))
			}
		}
	}
}

// TestStream_LeadingEmptyFrames verifies that the initial cursor skips
// empty frames while staying at position 0.
func TestStream_LeadingEmptyFrames(t *testing.T) {
	s := newTestStream(t, []byte{}, []byte{}, []byte("X"))
	if got := snapshot(s); got != (cursor{0, 2, 0}) {
		t.Errorf("cursor: got %+v, want {0 2 0}", got)
	}
	if b, ok := s.PeekByte(); !ok || b != 'X' {
		t.Errorf("PeekByte: got (%q, %t), want ('X', true)", b, ok)
	}
}

// TestStream_EmptySequence verifies a stream over no frames.
func TestStream_EmptySequence(t *testing.T) {
	s := newTestStream(t)
	if s.Len() != 0 {
		t.Errorf("Len: got %d, want 0", s.Len())
	}
	if err := s.SetPosition(0); err != nil {
		t.Errorf("SetPosition(0): %v", err)
	}
	if n, err := s.ReadCount(make([]byte, 1), 1); n != 0 || err != nil {
		t.Errorf("ReadCount: got (%d, %v), want (0, nil)", n, err)
	}
}

// TestStream_SetPositionIdempotent verifies that setting the current
// position does not disturb subsequent reads.
func TestStream_SetPositionIdempotent(t *testing.T) {
	s := abcde(t)
	s.SetPosition(2)
	before := snapshot(s)
	if err := s.SetPosition(2); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if snapshot(s) != before {
		t.Errorf("cursor changed")
	}
	got, _ := io.ReadAll(s)
	if string(got) != "CDE" {
		t.Errorf("got %q, want %q", got, "CDE")
	}
}

// TestStream_ReadByte verifies byte-wise reading and unreading across
// an empty frame.
func TestStream_ReadByte(t *testing.T) {
	s := abcde(t)

	var got []byte
	for {
		b, err := s.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadByte: %v", err)
		}
		got = append(got, b)
	}
	if string(got) != "ABCDE" {
		t.Errorf("got %q, want %q", got, "ABCDE")
	}

	if err := s.UnreadByte(); err != nil {
		t.Fatalf("UnreadByte: %v", err)
	}
	if b, _ := s.ReadByte(); b != 'E' {
		t.Errorf("after UnreadByte: got %q, want 'E'", b)
	}

	s.SetPosition(0)
	if err := s.UnreadByte(); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("UnreadByte at start: got %v, want ErrOutOfRange", err)
	}
}

// TestStream_ReadAt verifies positional reads leave the cursor alone.
func TestStream_ReadAt(t *testing.T) {
	s := abcde(t)
	s.SetPosition(4)
	before := snapshot(s)

	buf := make([]byte, 3)
	n, err := s.ReadAt(buf, 1)
	if err != nil || string(buf[:n]) != "BCD" {
		t.Errorf("ReadAt(1): got (%q, %v), want (\"BCD\", nil)", buf[:n], err)
	}

	n, err = s.ReadAt(buf, 3)
	if err != io.EOF || string(buf[:n]) != "DE" {
		t.Errorf("ReadAt(3): got (%q, %v), want (\"DE\", EOF)", buf[:n], err)
	}

	if _, err := s.ReadAt(buf, 5); err != io.EOF {
		t.Errorf("ReadAt(5): got %v, want EOF", err)
	}
	if _, err := s.ReadAt(buf, -1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ReadAt(-1): got %v, want ErrOutOfRange", err)
	}

	if after := snapshot(s); after != before {
		t.Errorf("cursor changed: %+v -> %+v", before, after)
	}
}

// TestStream_WriteTo verifies io.Copy drains the stream from the cursor.
func TestStream_WriteTo(t *testing.T) {
	s := abcde(t)
	s.SetPosition(1)

	var buf bytes.Buffer
	n, err := io.Copy(&buf, s)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != 4 || buf.String() != "BCDE" {
		t.Errorf("got (%d, %q), want (4, \"BCDE\")", n, buf.String())
	}
	if got := snapshot(s); got != (cursor{5, 3, 0}) {
		t.Errorf("cursor: got %+v, want {5 3 0}", got)
	}
}

// TestStream_WriteUnsupported verifies that write-side operations fail and
// Flush is a no-op.
func TestStream_WriteUnsupported(t *testing.T) {
	s := abcde(t)
	if _, err := s.Write([]byte("x")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Write: got %v, want ErrUnsupported", err)
	}
	if err := s.Truncate(1); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Truncate: got %v, want errors.ErrUnsupported", err)
	}
	if err := s.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if s.Len() != 5 {
		t.Errorf("Len changed: %d", s.Len())
	}
}

// TestStream_SharedSequence verifies that two streams over the same
// message keep independent cursors.
func TestStream_SharedSequence(t *testing.T) {
	m := NewMessage([]byte("AB"), []byte("CD"))
	a, _ := NewStream(m)
	b, _ := NewStream(m)

	a.SetPosition(3)
	if got, _ := io.ReadAll(b); string(got) != "ABCD" {
		t.Errorf("b: got %q, want %q", got, "ABCD")
	}
	if got, _ := io.ReadAll(a); string(got) != "D" {
		t.Errorf("a: got %q, want %q", got, "D")
	}
}
