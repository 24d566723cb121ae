// Package crypto implements the opaque cryptographic capability set a
// trustee needs: the working group, ElGamal encryption/decryption, the
// Joint-Feldman/Pedersen DKG, the verifiable shuffle, Chaum-Pedersen
// decryption-factor proofs, and message signing. Every operation here is
// deterministic given its inputs except where the protocol calls for a
// fresh random value (key generation, re-encryption randomness).
package crypto

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
)

// groupSuite collects the kyber capabilities this package needs, the same
// composition kyber's own vss and dkg packages require of their suites.
type groupSuite interface {
	kyber.Group
	kyber.HashFactory
	kyber.XOFFactory
	kyber.Random
}

// Suite is the group every artifact in a session is computed over. The
// protocol fixes edwards25519 with kyber's standard suite: SHA-256 hashing,
// a Blake2xb XOF, and a random stream from the system's secure random
// source.
type Suite struct {
	groupSuite
}

// NewSuite returns the session's working group.
func NewSuite() Suite {
	return Suite{edwards25519.NewBlakeSHA256Ed25519()}
}

// RandomScalar draws a uniformly random scalar in the suite's group.
func (s Suite) RandomScalar() kyber.Scalar { return s.Scalar().Pick(s.RandomStream()) }

// MarshalPoint serializes a group element to bytes for inclusion in an
// artifact.
func MarshalPoint(p kyber.Point) ([]byte, error) { return p.MarshalBinary() }

// UnmarshalPoint deserializes a group element previously produced by
// MarshalPoint.
func (s Suite) UnmarshalPoint(b []byte) (kyber.Point, error) {
	p := s.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return p, nil
}

// MarshalScalar serializes a scalar to bytes.
func MarshalScalar(x kyber.Scalar) ([]byte, error) { return x.MarshalBinary() }

// UnmarshalScalar deserializes a scalar previously produced by
// MarshalScalar.
func (s Suite) UnmarshalScalar(b []byte) (kyber.Scalar, error) {
	x := s.Scalar()
	if err := x.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return x, nil
}

// DeriveScalar derives a deterministic, uniformly-distributed scalar from
// arbitrary seed bytes, used everywhere the protocol needs a
// Fiat-Shamir-style challenge or a seeded generator instead of fresh
// randomness (§9 Generators: "seeded by cfg.label(...)"). Every trustee
// that calls DeriveScalar with the same seed gets the identical scalar.
func (s Suite) DeriveScalar(seed []byte) kyber.Scalar {
	return s.Scalar().Pick(s.XOF(seed))
}

// DerivePoint derives a deterministic generator from seed bytes; every
// trustee re-derives the identical generator from the same seed, which is
// what lets the shuffle proof's generator schedule be publicly
// recomputable instead of trusted setup.
func (s Suite) DerivePoint(seed []byte) kyber.Point {
	return s.Point().Pick(s.XOF(seed))
}
