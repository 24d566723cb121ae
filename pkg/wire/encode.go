package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// encoder builds the canonical byte representation of a value. Field order
// is fixed by the call sequence in each type's encode method below; two
// conforming implementations that encode the same logical value in the same
// field order produce byte-identical output, which is the only requirement
// §4.2 imposes on the wire format.
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder { return &encoder{} }

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

func (e *encoder) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeInt(v int) { e.writeUint64(uint64(int64(v))) }

func (e *encoder) writeBytes(b []byte) {
	e.writeUint64(uint64(len(b)))
	e.buf.Write(b)
}

func (e *encoder) writeString(s string) { e.writeBytes([]byte(s)) }

func (e *encoder) writeHash(h Hash) { e.buf.Write(h[:]) }

func (e *encoder) writeHashes(hs THashes) {
	for _, h := range hs {
		e.writeHash(h)
	}
}

func (e *encoder) writeTrustees(ts TrusteeSet) {
	for _, t := range ts {
		e.writeInt(int(t))
	}
}

func (e *encoder) writeByteSlices(bs [][]byte) {
	e.writeUint64(uint64(len(bs)))
	for _, b := range bs {
		e.writeBytes(b)
	}
}

// HashBytes computes the canonical 64-byte content address of b using
// blake2b-512, which produces exactly HashLen bytes — the property §6.5
// depends on (hash length = 64 bytes, NULL_HASH = 64 zero
// bytes).
func HashBytes(b []byte) (Hash, error) {
	sum := blake2b.Sum512(b)
	return Hash(sum), nil
}

// mustHash panics on a blake2b failure, which cannot happen for Sum512 since
// it has no variable-output-length configuration to misuse.
func mustHash(b []byte) Hash {
	h, err := HashBytes(b)
	if err != nil {
		panic(errors.Wrap(err, "wire: hashing canonical bytes"))
	}
	return h
}
