// Package record decodes length-prefixed fields and handshake records from
// any byte source, typically a *framestream.Stream spanning several frames.
package record

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/google/uuid"
)

// Reader is the byte source the decoders consume.
type Reader interface {
	io.Reader
	io.ByteReader
}

type WriteFn[T any] func(io.Writer, T) error
type ReadFn[T any] func(Reader) (T, error)

var (
	ErrVarIntTooLong     = errors.New("VarInt is too long")
	ErrNegativeLength    = errors.New("negative length")
	ErrInvalidBoolean    = errors.New("invalid byte for Boolean field")
	ErrUint24Overflow    = errors.New("value does not fit in 24 bits")
	ErrLengthLimitExceed = errors.New("length prefix exceeds limit")
)

// MaxFieldLen bounds every length prefix read by this package.
const MaxFieldLen = 1 << 24

// readN reads exactly n bytes; a short source is reported as
// io.ErrUnexpectedEOF.
func readN(r Reader, n int) (b []byte, err error) {
	b = make([]byte, n)
	if _, err = io.ReadFull(r, b); err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

func readByte(r Reader) (b byte, err error) {
	b, err = r.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

func WriteBoolean(w io.Writer, v bool) (err error) {
	b := byte(0)
	if v {
		b = 1
	}

	_, err = w.Write([]byte{b})
	return
}

func ReadBoolean(r Reader) (v bool, err error) {
	b, err := readByte(r)
	if err != nil {
		return
	}

	switch b {
	case 0:
		v = false
	case 1:
		v = true
	default:
		err = ErrInvalidBoolean
	}
	return
}

func WriteByte(w io.Writer, v byte) (err error) {
	_, err = w.Write([]byte{v})
	return
}

func ReadByte(r Reader) (v byte, err error) {
	return readByte(r)
}

func WriteUnsignedShort(w io.Writer, v uint16) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadUnsignedShort(r Reader) (v uint16, err error) {
	b, err := readN(r, 2)
	if err != nil {
		return
	}

	v = binary.BigEndian.Uint16(b)
	return
}

func WriteUint24(w io.Writer, v uint32) (err error) {
	if v > 0xFFFFFF {
		return ErrUint24Overflow
	}
	_, err = w.Write([]byte{byte(v >> 16), byte(v >> 8), byte(v)})
	return
}

func ReadUint24(r Reader) (v uint32, err error) {
	b, err := readN(r, 3)
	if err != nil {
		return
	}

	v = uint32(b[2]) | uint32(b[1])<<8 | uint32(b[0])<<16
	return
}

func WriteInt(w io.Writer, v int32) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadInt(r Reader) (v int32, err error) {
	b, err := readN(r, 4)
	if err != nil {
		return
	}

	v = int32(binary.BigEndian.Uint32(b))
	return
}

func WriteLong(w io.Writer, v int64) (err error) {
	return binary.Write(w, binary.BigEndian, v)
}

func ReadLong(r Reader) (v int64, err error) {
	b, err := readN(r, 8)
	if err != nil {
		return
	}

	v = int64(binary.BigEndian.Uint64(b))
	return
}

func WriteVarInt(w io.Writer, v int32) error {
	uv := uint32(v)
	for {
		b := byte(uv & 0x7F)
		uv >>= 7

		if uv != 0 {
			b |= 0x80
		}

		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}

		if uv == 0 {
			return nil
		}
	}
}

func ReadVarInt(r io.ByteReader) (int32, error) {
	var v int32
	var shift uint

	for n := 0; n < 5; n++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				err = io.ErrUnexpectedEOF
			}
			return v, err
		}

		v |= int32(b&0x7F) << shift
		shift += 7

		if (b & 0x80) == 0 {
			return v, nil
		}
	}
	return v, ErrVarIntTooLong
}

// readLength reads a VarInt length prefix and checks it against MaxFieldLen.
func readLength(r Reader) (n int, err error) {
	length, err := ReadVarInt(r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return
	}
	if length < 0 {
		return 0, ErrNegativeLength
	}
	if length > MaxFieldLen {
		return 0, ErrLengthLimitExceed
	}
	return int(length), nil
}

func WriteString(w io.Writer, v string) (err error) {
	err = WriteVarInt(w, int32(len(v)))
	if err != nil {
		return
	}
	_, err = w.Write([]byte(v))
	return
}

func ReadString(r Reader) (v string, err error) {
	length, err := readLength(r)
	if err != nil {
		return
	}

	buf, err := readN(r, length)
	return string(buf), err
}

// WritePrefixedBytes writes v with a VarInt length prefix.
func WritePrefixedBytes(w io.Writer, v []byte) (err error) {
	if err = WriteVarInt(w, int32(len(v))); err != nil {
		return
	}
	_, err = w.Write(v)
	return
}

func ReadPrefixedBytes(r Reader) (v []byte, err error) {
	length, err := readLength(r)
	if err != nil {
		return
	}
	return readN(r, length)
}

// WriteOpaque24 writes v with a 24-bit big endian length prefix, the
// framing used for certificate lists.
func WriteOpaque24(w io.Writer, v []byte) (err error) {
	if err = WriteUint24(w, uint32(len(v))); err != nil {
		return
	}
	_, err = w.Write(v)
	return
}

func ReadOpaque24(r Reader) (v []byte, err error) {
	length, err := ReadUint24(r)
	if err != nil {
		return
	}
	return readN(r, int(length))
}

func WriteUUID(w io.Writer, v uuid.UUID) (err error) {
	_, err = w.Write(v[:])
	return
}

func ReadUUID(r Reader) (v uuid.UUID, err error) {
	b, err := readN(r, 16)
	if err != nil {
		return
	}

	return uuid.FromBytes(b)
}

func WritePrefixedArray[T any](w io.Writer, v []T, write WriteFn[T]) (err error) {
	err = WriteVarInt(w, int32(len(v)))
	if err != nil {
		return
	}

	for _, item := range v {
		err = write(w, item)
		if err != nil {
			return
		}
	}
	return
}

func ReadPrefixedArray[T any](r Reader, read ReadFn[T]) (v []T, err error) {
	length, err := readLength(r)
	if err != nil {
		return
	}

	v = make([]T, 0, min(length, 64))
	for i := 0; i < length; i++ {
		var item T
		if item, err = read(r); err != nil {
			return
		}
		v = append(v, item)
	}

	return
}

// Optional[T] represents an optional field.
//
// Serialized Optional[T] is prefixed with Boolean of whether the value exists.
// If so, the value T is followed.
type Optional[T any] struct {
	Exists bool
	Item   T
}

func WriteOptional[T any](w io.Writer, v Optional[T], write WriteFn[T]) (err error) {
	err = WriteBoolean(w, v.Exists)
	if err != nil {
		return
	}

	if v.Exists {
		err = write(w, v.Item)
	}
	return
}

func ReadOptional[T any](r Reader, read ReadFn[T]) (v Optional[T], err error) {
	if v.Exists, err = ReadBoolean(r); err != nil {
		return
	}

	if v.Exists {
		v.Item, err = read(r)
	}
	return
}
