package wire

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

func init() {
	gob.Register(Configuration{})
	gob.Register(Commitments{})
	gob.Register(Shares{})
	gob.Register(DkgPublicKey{})
	gob.Register(Ballots{})
	gob.Register(Mix{})
	gob.Register(DecryptionFactors{})
	gob.Register(Plaintexts{})
}

// gobMessage mirrors Message but with Artifact boxed for gob, which cannot
// encode a nil interface field directly inside a struct that is itself
// gob-registered polymorphically.
type gobMessage struct {
	ID        uint64
	Statement Statement
	HasArtifact bool
	Artifact  Artifact
	Sender    Sender
	Signature []byte
}

// MarshalMessage serializes a full Message, including its concrete
// Artifact type, for local persistence (internal/store). This is distinct
// from SigningBytes/CanonicalBytes, which only ever need to reproduce a
// deterministic hash input, not round-trip the Go value.
func MarshalMessage(m Message) ([]byte, error) {
	gm := gobMessage{
		ID:          m.ID,
		Statement:   m.Statement,
		HasArtifact: m.Artifact != nil,
		Artifact:    m.Artifact,
		Sender:      m.Sender,
		Signature:   m.Signature,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gm); err != nil {
		return nil, errors.Wrap(err, "wire: gob-encode message")
	}
	return buf.Bytes(), nil
}

// UnmarshalMessage reverses MarshalMessage.
func UnmarshalMessage(b []byte) (Message, error) {
	var gm gobMessage
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&gm); err != nil {
		return Message{}, errors.Wrap(err, "wire: gob-decode message")
	}
	m := Message{ID: gm.ID, Statement: gm.Statement, Sender: gm.Sender, Signature: gm.Signature}
	if gm.HasArtifact {
		m.Artifact = gm.Artifact
	}
	return m, nil
}
