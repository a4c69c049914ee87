package framestream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/rs/zerolog/log"

	"github.com/gstoney/framestream/record"
)

var (
	ErrFrameTooBig   = errors.New("frame too big")
	ErrTooManyFrames = errors.New("too many frames in message")
)

type byteReader interface {
	io.Reader
	io.ByteReader
}

type byteWriter interface {
	io.Writer
	io.ByteWriter
}

// Transport sends and receives multipart messages over a byte stream.
//
// Each frame is written as a flags byte, a VarInt length and the payload.
// The last frame of a message has the MORE flag cleared. When Recv fails
// with ErrFrameTooBig or ErrTooManyFrames the rest of the message is
// discarded, so the next Recv starts at the following message. After any
// other error the input is no longer aligned and the connection should be
// dropped.
type Transport struct {
	writer byteWriter

	fReader FrameReader
	zBuffer []byte

	cfg TransportConfig
}

// NewTransport creates a Transport.
//
// For readers/writers that perform syscalls (e.g. net.Conn), buffering is
// required. Indicate buffered I/O by implementing io.ByteReader/io.ByteWriter.
// If these interfaces are not implemented, the reader/writer will be wrapped
// with bufio.
func NewTransport(r io.Reader, w io.Writer, cfg TransportConfig) *Transport {
	var br byteReader
	var bw byteWriter

	if b, ok := r.(byteReader); ok {
		br = b
	} else if r != nil {
		br = bufio.NewReader(r)
	}

	if b, ok := w.(byteWriter); ok {
		bw = b
	} else if w != nil {
		bw = bufio.NewWriter(w)
	}

	return &Transport{
		writer:  bw,
		fReader: FrameReader{src: br},
		cfg:     cfg,
	}
}

// Recv reads the next message. Each frame gets its own buffer.
func (t *Transport) Recv() (Message, error) {
	var m Message
	for {
		h, err := t.fReader.Next()
		if err != nil {
			if err == io.EOF && len(m) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if len(m) >= t.cfg.MaxFrames {
			return nil, t.discard(h, ErrTooManyFrames)
		}
		if h.Length > t.cfg.MaxFrameLen {
			return nil, t.discard(h, ErrFrameTooBig)
		}

		buf := make([]byte, h.Length)
		if _, err := io.ReadFull(&t.fReader, buf); err != nil {
			return nil, err
		}

		if h.Compressed {
			if buf, err = t.decompress(buf); err != nil {
				if err == ErrFrameTooBig {
					err = t.discard(h, err)
				}
				return nil, err
			}
		}

		m = append(m, buf)
		if !h.More {
			break
		}
	}

	log.Debug().Str("component", "transport").
		Int("frames", len(m)).
		Int64("bytes", m.Len()).
		Msg("received message")
	return m, nil
}

// discard skips the rest of the message whose current header is h and
// returns cause once the reader is aligned on the next message.
func (t *Transport) discard(h FrameHeader, cause error) error {
	var skipped int64
	for {
		n, err := t.fReader.Skip()
		skipped += int64(n)
		if err != nil {
			return err
		}
		if !h.More {
			break
		}
		if h, err = t.fReader.Next(); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}

	log.Debug().Str("component", "transport").
		Err(cause).
		Int64("skipped", skipped).
		Msg("discarded message")
	return cause
}

func (t *Transport) decompress(b []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if n > int(t.cfg.MaxFrameLen) {
		return nil, ErrFrameTooBig
	}
	out, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return out, nil
}

// RecvStream receives the next message and wraps it in a Stream.
func (t *Transport) RecvStream() (*Stream, error) {
	m, err := t.Recv()
	if err != nil {
		return nil, err
	}
	return NewStream(m)
}

// Send writes all frames of m. Frames at or above the compression
// threshold are snappy encoded.
func (t *Transport) Send(m FrameSequence) error {
	n := m.FrameCount()
	if n == 0 {
		return fmt.Errorf("%w: message has no frames", ErrInvalidInput)
	}

	for i := 0; i < n; i++ {
		payload := m.Frame(i)
		flags := byte(0)
		if i < n-1 {
			flags |= flagMore
		}

		if t.cfg.CompressionThreshold >= 0 && len(payload) >= t.cfg.CompressionThreshold {
			t.zBuffer = snappy.Encode(t.zBuffer[:cap(t.zBuffer)], payload)
			payload = t.zBuffer
			flags |= flagSnappy
		}

		if err := t.writer.WriteByte(flags); err != nil {
			return err
		}
		if err := record.WriteVarInt(t.writer, int32(len(payload))); err != nil {
			return err
		}
		if _, err := t.writer.Write(payload); err != nil {
			return err
		}
	}

	if bw, ok := t.writer.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
