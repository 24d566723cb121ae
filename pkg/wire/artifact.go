package wire

import "fmt"

// Artifact is any byte-addressable payload whose hash is the sole referent
// used outside the message that carries it (§3.2).
type Artifact interface {
	// CanonicalBytes returns the deterministic byte encoding used to compute
	// this artifact's hash and to verify signatures over it.
	CanonicalBytes() []byte
}

// ElGamalCiphertext is a single multiplicative ElGamal ciphertext over the
// session's group: GR = g^r, MHR = m * h^r where h is the DKG public key
// element. Decryption divides MHR by the combined decryption factor
// (GR^x, reconstructed via Lagrange interpolation of the trustees' partial
// factors) to recover m.
type ElGamalCiphertext struct {
	GR  []byte // marshaled group element g^r
	MHR []byte // marshaled group element m * h^r
}

func (c ElGamalCiphertext) encode(e *encoder) {
	e.writeBytes(c.GR)
	e.writeBytes(c.MHR)
}

// Configuration is the session-bootstrapping artifact posted by the
// protocol manager.
type Configuration struct {
	SessionID             string
	GroupID                string // identifies the group/curve this session runs over
	ProtocolManagerPublic []byte // protocol manager's verification key
	TrusteePublics        [][]byte // ordered, index i = trustee position i+1
	Threshold             Threshold
}

func (c Configuration) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeString(c.SessionID)
	e.writeString(c.GroupID)
	e.writeBytes(c.ProtocolManagerPublic)
	e.writeByteSlices(c.TrusteePublics)
	e.writeInt(int(c.Threshold))
	return e.bytes()
}

// NTrustees is the number of trustees configured for this session.
func (c Configuration) NTrustees() int { return len(c.TrusteePublics) }

// Label deterministically seeds a named generator set for a given batch
// and mix position (the cfg.label(batch, "shuffle_generatorsN")
// construction of §9): both the mixer and every verifier must re-derive
// the identical seed, or every proof in the chain is invalidated.
func (c Configuration) Label(batch BatchNumber, tag string) []byte {
	e := newEncoder()
	e.writeString(c.SessionID)
	e.writeInt(int(batch))
	e.writeString(tag)
	return e.bytes()
}

// Shares is one trustee's encrypted secret shares, one per recipient
// trustee, produced during the DKG phase.
type Shares struct {
	Signer          TrusteePosition
	EncryptedShares [][]byte // index i = ciphertext for trustee i+1
}

func (s Shares) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeInt(int(s.Signer))
	e.writeByteSlices(s.EncryptedShares)
	return e.bytes()
}

// Commitments is one trustee's Pedersen-style polynomial commitments for its
// DKG dealing.
type Commitments struct {
	Signer      TrusteePosition
	Commitments [][]byte // degree-(t-1) polynomial coefficient commitments
}

func (c Commitments) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeInt(int(c.Signer))
	e.writeByteSlices(c.Commitments)
	return e.bytes()
}

// DkgPublicKey is the combined public key element derived from every
// trustee's commitments.
type DkgPublicKey struct {
	PK []byte
}

func (k DkgPublicKey) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeBytes(k.PK)
	return e.bytes()
}

// Ballots is an ordered list of ElGamal ciphertexts: either the initial
// batch posted by the protocol manager, or a mix's output (CiphertextsHash
// is used interchangeably to refer to either source, §3.1).
type Ballots struct {
	Ciphertexts []ElGamalCiphertext
}

func (b Ballots) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeUint64(uint64(len(b.Ciphertexts)))
	for _, c := range b.Ciphertexts {
		c.encode(e)
	}
	return e.bytes()
}

// ShuffleProof is a verifiable re-encryption-correctness proof for one mix.
// It is a simplified, explicitly non-hiding stand-in for a real Wikström
// shuffle argument — see internal/crypto/shuffle.go and DESIGN.md for the
// construction and why it is scoped this way. The spec treats proof-system
// internals as an explicit non-goal (§1); this type only needs to support
// the testable properties in §8, not resist a cryptanalytic adversary.
type ShuffleProof struct {
	// Y is the per-source-index value the Fiat-Shamir challenge schedule
	// assigns to the permuted position; it is a rearrangement of the
	// publicly re-derivable challenge values and is checked by the verifier
	// against its own recomputation (see crypto.VerifyShuffle).
	Y [][]byte
	// R is the aggregated re-encryption randomness opening.
	R []byte
}

func (p ShuffleProof) encode(e *encoder) {
	e.writeByteSlices(p.Y)
	e.writeBytes(p.R)
}

// Mix is one step of the verifiable shuffle chain: either real shuffled
// ciphertexts with a proof, or — for an empty source batch — a null mix with
// no proof, keeping the chain length fixed at t regardless of batch size
// (§4.4.3 Null-mix policy).
type Mix struct {
	Ciphertexts []ElGamalCiphertext
	Proof       *ShuffleProof // nil iff this is a null mix
	MixNumber   MixNumber
}

// IsNull reports whether this is a null mix (empty source batch).
func (m Mix) IsNull() bool { return len(m.Ciphertexts) == 0 }

func (m Mix) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeInt(int(m.MixNumber))
	e.writeUint64(uint64(len(m.Ciphertexts)))
	for _, c := range m.Ciphertexts {
		c.encode(e)
	}
	if m.Proof != nil {
		e.buf.WriteByte(1)
		m.Proof.encode(e)
	} else {
		e.buf.WriteByte(0)
	}
	return e.bytes()
}

// DLEQProof is a Chaum-Pedersen proof of equality of discrete logarithms,
// proving a partial decryption factor was computed with the same secret
// share as the trustee's public commitment, without revealing the share.
type DLEQProof struct {
	C  []byte // challenge
	R  []byte // response
	VG []byte // commitment w.r.t. base G
	VH []byte // commitment w.r.t. base H (the ciphertext's GR component)
}

// DecryptionFactors is one trustee's partial decryption of a target
// ciphertext list, with one Chaum-Pedersen proof per ciphertext.
type DecryptionFactors struct {
	Signer  TrusteePosition
	Factors [][]byte // one partial decryption factor per ciphertext
	Proofs  []DLEQProof
}

func (d DecryptionFactors) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeInt(int(d.Signer))
	e.writeByteSlices(d.Factors)
	e.writeUint64(uint64(len(d.Proofs)))
	for _, p := range d.Proofs {
		e.writeBytes(p.C)
		e.writeBytes(p.R)
		e.writeBytes(p.VG)
		e.writeBytes(p.VH)
	}
	return e.bytes()
}

// Plaintexts is the final decoded batch output.
type Plaintexts struct {
	Plaintexts [][]byte
}

func (p Plaintexts) CanonicalBytes() []byte {
	e := newEncoder()
	e.writeByteSlices(p.Plaintexts)
	return e.bytes()
}

// HashArtifact computes the canonical content address of any Artifact.
func HashArtifact(a Artifact) Hash {
	return mustHash(a.CanonicalBytes())
}

func (c Configuration) String() string {
	return fmt.Sprintf("Configuration{session=%s trustees=%d threshold=%d}", c.SessionID, c.NTrustees(), c.Threshold)
}
