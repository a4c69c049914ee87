// Package capture persists received multipart messages so they can be
// replayed and inspected offline.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gstoney/framestream"
)

var ErrNotFound = errors.New("capture not found")

// Capture is one recorded message. Frames are kept as received, including
// empty ones.
type Capture struct {
	Name       string    `msgpack:"name"`
	Remote     string    `msgpack:"remote,omitempty"`
	CapturedAt time.Time `msgpack:"captured_at"`
	Frames     [][]byte  `msgpack:"frames"`
}

func New(name string, m framestream.FrameSequence) *Capture {
	c := &Capture{
		Name:       name,
		CapturedAt: time.Now().UTC(),
		Frames:     make([][]byte, m.FrameCount()),
	}
	for i := range c.Frames {
		c.Frames[i] = append([]byte{}, m.Frame(i)...)
	}
	return c
}

// Message returns the frames as a Message without copying.
func (c *Capture) Message() framestream.Message {
	return framestream.Message(c.Frames)
}

func Encode(w io.Writer, c *Capture) error {
	if err := msgpack.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encoding capture %q: %w", c.Name, err)
	}
	return nil
}

func Decode(r io.Reader) (*Capture, error) {
	var c Capture
	if err := msgpack.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding capture: %w", err)
	}
	return &c, nil
}

// Store loads and saves captures by key.
type Store interface {
	Load(ctx context.Context, key string) (*Capture, error)
	Save(ctx context.Context, key string, c *Capture) error
}
