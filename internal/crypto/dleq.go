package crypto

import (
	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/pkg/wire"
)

// ProveDLEQ constructs a Chaum-Pedersen proof that log_G(pub) == log_H(factor),
// i.e. that factor = H^x for the same secret x with pub = G^x, without
// revealing x. This is the decryption-factor proof §4.4.4 requires: pub is
// the trustee's public DKG share, H is the ciphertext's GR component, and
// factor is the trustee's partial decryption factor for that ciphertext.
// The construction is the classic non-interactive (Fiat-Shamir)
// Chaum-Pedersen protocol, built on kyber v3's Group/Scalar/Point
// interface.
func ProveDLEQ(s Suite, x kyber.Scalar, g, h, pub, factor kyber.Point) (wire.DLEQProof, error) {
	k := s.RandomScalar()
	vg := s.Point().Mul(k, g)
	vh := s.Point().Mul(k, h)

	c := fiatShamirChallenge(s, g, h, pub, factor, vg, vh)
	// r = k - c*x
	r := s.Scalar().Sub(k, s.Scalar().Mul(c, x))

	cB, err := MarshalScalar(c)
	if err != nil {
		return wire.DLEQProof{}, errors.Wrap(err, "crypto: marshal challenge")
	}
	rB, err := MarshalScalar(r)
	if err != nil {
		return wire.DLEQProof{}, errors.Wrap(err, "crypto: marshal response")
	}
	vgB, err := MarshalPoint(vg)
	if err != nil {
		return wire.DLEQProof{}, errors.Wrap(err, "crypto: marshal vg")
	}
	vhB, err := MarshalPoint(vh)
	if err != nil {
		return wire.DLEQProof{}, errors.Wrap(err, "crypto: marshal vh")
	}
	return wire.DLEQProof{C: cB, R: rB, VG: vgB, VH: vhB}, nil
}

// VerifyDLEQ checks a proof produced by ProveDLEQ: recomputes the
// challenge from (g, h, pub, factor, vg, vh) and checks
// g^r * pub^c == vg and h^r * factor^c == vh.
func VerifyDLEQ(s Suite, g, h, pub, factor kyber.Point, proof wire.DLEQProof) (bool, error) {
	c, err := s.UnmarshalScalar(proof.C)
	if err != nil {
		return false, errors.Wrap(err, "crypto: unmarshal challenge")
	}
	r, err := s.UnmarshalScalar(proof.R)
	if err != nil {
		return false, errors.Wrap(err, "crypto: unmarshal response")
	}
	vg, err := s.UnmarshalPoint(proof.VG)
	if err != nil {
		return false, errors.Wrap(err, "crypto: unmarshal vg")
	}
	vh, err := s.UnmarshalPoint(proof.VH)
	if err != nil {
		return false, errors.Wrap(err, "crypto: unmarshal vh")
	}

	expectedC := fiatShamirChallenge(s, g, h, pub, factor, vg, vh)
	if !expectedC.Equal(c) {
		return false, nil
	}

	lhsG := s.Point().Add(s.Point().Mul(r, g), s.Point().Mul(c, pub))
	if !lhsG.Equal(vg) {
		return false, nil
	}
	lhsH := s.Point().Add(s.Point().Mul(r, h), s.Point().Mul(c, factor))
	if !lhsH.Equal(vh) {
		return false, nil
	}
	return true, nil
}

// fiatShamirChallenge derives a scalar challenge deterministically from the
// marshaled transcript, collapsing the Chaum-Pedersen protocol's
// interactive verifier challenge into a hash, the standard Fiat-Shamir
// transform.
func fiatShamirChallenge(s Suite, points ...kyber.Point) kyber.Scalar {
	e := newTranscript()
	for _, p := range points {
		e.writePoint(p)
	}
	return s.DeriveScalar(e.bytes())
}
