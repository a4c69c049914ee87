package record

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var (
	ErrTrailingData = errors.New("trailing data after handshake body")
	ErrUnknownType  = errors.New("unknown handshake type")
	ErrBodyTooLong  = errors.New("handshake body exceeds declared length")
)

type HandshakeType byte

const (
	TypeClientHello HandshakeType = 1
	TypeServerHello HandshakeType = 2
	TypeCertificate HandshakeType = 11
	TypeFinished    HandshakeType = 20
)

func (t HandshakeType) String() string {
	switch t {
	case TypeClientHello:
		return "client_hello"
	case TypeServerHello:
		return "server_hello"
	case TypeCertificate:
		return "certificate"
	case TypeFinished:
		return "finished"
	}
	return fmt.Sprintf("handshake(%d)", byte(t))
}

// Handshake is one handshake message. Encode and Decode handle the body
// only; the type and length header is written by WriteHandshake.
type Handshake interface {
	Type() HandshakeType
	Encode(w io.Writer) error
	Decode(r Reader) error
}

var Registry = map[HandshakeType]func() Handshake{
	TypeClientHello: func() Handshake { return &ClientHello{} },
	TypeServerHello: func() Handshake { return &ServerHello{} },
	TypeCertificate: func() Handshake { return &Certificate{} },
	TypeFinished:    func() Handshake { return &Finished{} },
}

// bodyReader bounds reads to one handshake body.
type bodyReader struct {
	src       Reader
	remaining int
}

func (b *bodyReader) Read(p []byte) (n int, err error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) > b.remaining {
		p = p[:b.remaining]
	}
	n, err = b.src.Read(p)
	b.remaining -= n

	if err == io.EOF && b.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return
}

func (b *bodyReader) ReadByte() (byte, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	v, err := b.src.ReadByte()
	if err == nil {
		b.remaining--
	} else if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return v, err
}

// ReadHandshake decodes one handshake message from r.
//
// The body is decoded straight from r through a reader bounded to the
// declared length; a body that is not fully consumed is an error.
func ReadHandshake(r Reader) (Handshake, error) {
	t, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	length, err := ReadUint24(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s length: %w", HandshakeType(t), err)
	}

	newFn, ok := Registry[HandshakeType(t)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}

	h := newFn()
	body := &bodyReader{src: r, remaining: int(length)}
	if err := h.Decode(body); err != nil {
		if err == io.ErrUnexpectedEOF && body.remaining == 0 {
			err = ErrBodyTooLong
		}
		return nil, fmt.Errorf("decoding %s: %w", h.Type(), err)
	}
	if body.remaining > 0 {
		return nil, fmt.Errorf("decoding %s: %w (%d bytes)", h.Type(), ErrTrailingData, body.remaining)
	}
	return h, nil
}

// WriteHandshake writes h with its type and 24-bit length header.
func WriteHandshake(w io.Writer, h Handshake) error {
	var body bytes.Buffer
	if err := h.Encode(&body); err != nil {
		return err
	}

	if err := WriteByte(w, byte(h.Type())); err != nil {
		return err
	}
	if err := WriteUint24(w, uint32(body.Len())); err != nil {
		return err
	}
	_, err := body.WriteTo(w)
	return err
}

type Random [32]byte

func writeRandom(w io.Writer, v Random) (err error) {
	_, err = w.Write(v[:])
	return
}

func readRandom(r Reader) (v Random, err error) {
	b, err := readN(r, len(v))
	if err != nil {
		return
	}
	copy(v[:], b)
	return
}

type ClientHello struct {
	Version      uint16
	Random       Random
	SessionID    uuid.UUID
	CipherSuites []uint16
	Extensions   []byte
}

func (p *ClientHello) Type() HandshakeType { return TypeClientHello }

func (p *ClientHello) Encode(w io.Writer) (err error) {
	if err = WriteUnsignedShort(w, p.Version); err != nil {
		return
	}
	if err = writeRandom(w, p.Random); err != nil {
		return
	}
	if err = WriteUUID(w, p.SessionID); err != nil {
		return
	}
	if err = WritePrefixedArray(w, p.CipherSuites, WriteUnsignedShort); err != nil {
		return
	}
	return WritePrefixedBytes(w, p.Extensions)
}

func (p *ClientHello) Decode(r Reader) (err error) {
	if p.Version, err = ReadUnsignedShort(r); err != nil {
		return
	}
	if p.Random, err = readRandom(r); err != nil {
		return
	}
	if p.SessionID, err = ReadUUID(r); err != nil {
		return
	}
	if p.CipherSuites, err = ReadPrefixedArray(r, ReadUnsignedShort); err != nil {
		return
	}
	p.Extensions, err = ReadPrefixedBytes(r)
	return
}

type ServerHello struct {
	Version     uint16
	Random      Random
	SessionID   uuid.UUID
	CipherSuite uint16
	// Timestamp is the server clock in Unix milliseconds.
	Timestamp int64
	// TicketLifetime is how long, in seconds, the session may be resumed.
	// Negative means the session is not resumable.
	TicketLifetime int32
}

func (p *ServerHello) Type() HandshakeType { return TypeServerHello }

func (p *ServerHello) Encode(w io.Writer) (err error) {
	if err = WriteUnsignedShort(w, p.Version); err != nil {
		return
	}
	if err = writeRandom(w, p.Random); err != nil {
		return
	}
	if err = WriteUUID(w, p.SessionID); err != nil {
		return
	}
	if err = WriteUnsignedShort(w, p.CipherSuite); err != nil {
		return
	}
	if err = WriteLong(w, p.Timestamp); err != nil {
		return
	}
	return WriteInt(w, p.TicketLifetime)
}

func (p *ServerHello) Decode(r Reader) (err error) {
	if p.Version, err = ReadUnsignedShort(r); err != nil {
		return
	}
	if p.Random, err = readRandom(r); err != nil {
		return
	}
	if p.SessionID, err = ReadUUID(r); err != nil {
		return
	}
	if p.CipherSuite, err = ReadUnsignedShort(r); err != nil {
		return
	}
	if p.Timestamp, err = ReadLong(r); err != nil {
		return
	}
	p.TicketLifetime, err = ReadInt(r)
	return
}

// Certificate carries a chain of DER encoded certificates, leaf first.
// On the wire the chain is a 24-bit length prefixed list of 24-bit length
// prefixed entries.
type Certificate struct {
	Chain [][]byte
}

func (p *Certificate) Type() HandshakeType { return TypeCertificate }

func (p *Certificate) Encode(w io.Writer) error {
	var list bytes.Buffer
	for _, der := range p.Chain {
		if err := WriteOpaque24(&list, der); err != nil {
			return err
		}
	}
	return WriteOpaque24(w, list.Bytes())
}

func (p *Certificate) Decode(r Reader) error {
	total, err := ReadUint24(r)
	if err != nil {
		return err
	}

	list := &bodyReader{src: r, remaining: int(total)}
	p.Chain = nil
	for list.remaining > 0 {
		der, err := ReadOpaque24(list)
		if err != nil {
			return err
		}
		p.Chain = append(p.Chain, der)
	}
	return nil
}

// Certificates parses the chain.
func (p *Certificate) Certificates() ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(p.Chain))
	for i, der := range p.Chain {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("certificate %d: %w", i, err)
		}
		certs = append(certs, c)
	}
	return certs, nil
}

type Finished struct {
	VerifyData []byte
}

func (p *Finished) Type() HandshakeType { return TypeFinished }

func (p *Finished) Encode(w io.Writer) error {
	return WritePrefixedBytes(w, p.VerifyData)
}

func (p *Finished) Decode(r Reader) (err error) {
	p.VerifyData, err = ReadPrefixedBytes(r)
	return
}
