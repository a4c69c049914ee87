package record

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// AuthRecord is the RLP encoded key agreement message exchanged before the
// handshake records. Unknown trailing list elements are kept in Rest so
// newer peers can add fields.
type AuthRecord struct {
	Signature []byte
	PublicKey []byte
	Nonce     [32]byte
	Version   uint

	Rest []rlp.RawValue `rlp:"tail"`
}

// DecodeAuth decodes an AuthRecord directly from r. limit caps the number
// of input bytes the decoder may consume; 0 means no limit.
func DecodeAuth(r io.Reader, limit uint64) (*AuthRecord, error) {
	var a AuthRecord
	if err := rlp.NewStream(r, limit).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding auth record: %w", err)
	}
	return &a, nil
}

func EncodeAuth(w io.Writer, a *AuthRecord) error {
	return rlp.Encode(w, a)
}
