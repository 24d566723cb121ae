package crypto

import (
	"bytes"
	"encoding/binary"

	"go.dedis.ch/kyber/v3"
)

// transcript accumulates marshaled values in a fixed order to build the
// input to a Fiat-Shamir challenge derivation. Two callers that append the
// same logical values in the same order get byte-identical transcripts,
// which is what makes a prover's and a verifier's challenge recomputation
// agree.
type transcript struct {
	buf bytes.Buffer
}

func newTranscript() *transcript { return &transcript{} }

func (t *transcript) bytes() []byte { return t.buf.Bytes() }

func (t *transcript) writeBytes(b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	t.buf.Write(n[:])
	t.buf.Write(b)
}

func (t *transcript) writePoint(p kyber.Point) {
	b, err := p.MarshalBinary()
	if err != nil {
		panic("crypto: marshal point in transcript: " + err.Error())
	}
	t.writeBytes(b)
}
