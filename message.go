package framestream

// FrameSequence is an ordered, indexable sequence of frames.
//
// Implementations must not change frame count, lengths or contents while a
// Stream is reading from them. Frame(i) must return exactly FrameLen(i) bytes.
type FrameSequence interface {
	FrameCount() int
	FrameLen(i int) int
	Frame(i int) []byte
}

// Message is a multipart message held as independently allocated frames.
type Message [][]byte

func NewMessage(frames ...[]byte) Message {
	return Message(frames)
}

func (m Message) FrameCount() int {
	return len(m)
}

func (m Message) FrameLen(i int) int {
	return len(m[i])
}

func (m Message) Frame(i int) []byte {
	return m[i]
}

// Len returns the total number of bytes across all frames.
func (m Message) Len() int64 {
	var n int64
	for _, f := range m {
		n += int64(len(f))
	}
	return n
}

// Bytes concatenates the frames into a new buffer.
func (m Message) Bytes() []byte {
	b := make([]byte, 0, m.Len())
	for _, f := range m {
		b = append(b, f...)
	}
	return b
}
