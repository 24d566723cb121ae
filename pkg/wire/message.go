package wire

// Sender identifies who made a statement: a trustee position plus the
// verification key that must match the key configured for that position
// (or the protocol-manager key, for PROTOCOL_MANAGER_INDEX) (§4.2).
type Sender struct {
	Position TrusteePosition
	VerifyKey []byte
}

// Message is (statement, artifact?, sender, signature). Artifact is nil
// when the statement kind introduces no new byte-addressable object (e.g.
// every *Signed acknowledgment references hashes that already exist).
//
// Board-assigned fields (ID) are set by the board on insertion and are
// zero for a message not yet posted.
type Message struct {
	ID        uint64
	Statement Statement
	Artifact  Artifact
	Sender    Sender
	Signature []byte
}

// SigningBytes returns the canonical bytes a signature covers: the
// statement's encoding followed by the artifact's encoding, if present.
// internal/crypto signs and verifies exactly this slice; pkg/wire has no
// opinion on the signature scheme itself, keeping it free of a crypto
// import (§4.2: "signature covers the canonical encoding of the statement
// + artifact").
func (m Message) SigningBytes() []byte {
	e := newEncoder()
	m.Statement.encode(e)
	if m.Artifact != nil {
		e.writeBytes(m.Artifact.CanonicalBytes())
	}
	return e.bytes()
}

// Hash returns the content address of this message's statement+artifact,
// independent of sender/signature/board id. Two messages with identical
// statement and artifact content hash identically, which is how duplicate
// postings collapse to one predicate (§3.3: "duplicates are deduplicated
// on ingest").
func (m Message) Hash() Hash {
	return mustHash(m.SigningBytes())
}
