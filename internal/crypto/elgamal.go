package crypto

import (
	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/pkg/wire"
)

// Encrypt produces an ElGamal ciphertext (g^r, m*h^r) of plaintext point m
// under combined public key h, using fresh randomness r.
func Encrypt(s Suite, h kyber.Point, m kyber.Point) (wire.ElGamalCiphertext, error) {
	r := s.RandomScalar()
	gr := s.Point().Mul(r, nil)
	mhr := s.Point().Add(m, s.Point().Mul(r, h))

	grB, err := MarshalPoint(gr)
	if err != nil {
		return wire.ElGamalCiphertext{}, errors.Wrap(err, "crypto: marshal gr")
	}
	mhrB, err := MarshalPoint(mhr)
	if err != nil {
		return wire.ElGamalCiphertext{}, errors.Wrap(err, "crypto: marshal mhr")
	}
	return wire.ElGamalCiphertext{GR: grB, MHR: mhrB}, nil
}

// ReEncrypt re-randomizes a ciphertext under the same key, returning the new
// ciphertext and the randomness used (needed by the shuffle proof).
func ReEncrypt(s Suite, h kyber.Point, c wire.ElGamalCiphertext) (wire.ElGamalCiphertext, kyber.Scalar, error) {
	gr, mhr, err := decodeCiphertext(s, c)
	if err != nil {
		return wire.ElGamalCiphertext{}, nil, err
	}
	r := s.RandomScalar()
	gr2 := s.Point().Add(gr, s.Point().Mul(r, nil))
	mhr2 := s.Point().Add(mhr, s.Point().Mul(r, h))

	gr2B, err := MarshalPoint(gr2)
	if err != nil {
		return wire.ElGamalCiphertext{}, nil, errors.Wrap(err, "crypto: marshal gr")
	}
	mhr2B, err := MarshalPoint(mhr2)
	if err != nil {
		return wire.ElGamalCiphertext{}, nil, errors.Wrap(err, "crypto: marshal mhr")
	}
	return wire.ElGamalCiphertext{GR: gr2B, MHR: mhr2B}, r, nil
}

// DecodeGR unmarshals a ciphertext's GR component alone, the H term a
// decryption-factor's Chaum-Pedersen proof is taken with respect to
// (§4.4.4).
func DecodeGR(s Suite, c wire.ElGamalCiphertext) (kyber.Point, error) {
	gr, _, err := decodeCiphertext(s, c)
	return gr, err
}

func decodeCiphertext(s Suite, c wire.ElGamalCiphertext) (gr, mhr kyber.Point, err error) {
	gr, err = s.UnmarshalPoint(c.GR)
	if err != nil {
		return nil, nil, errors.Wrap(err, "crypto: unmarshal gr")
	}
	mhr, err = s.UnmarshalPoint(c.MHR)
	if err != nil {
		return nil, nil, errors.Wrap(err, "crypto: unmarshal mhr")
	}
	return gr, mhr, nil
}

// PartialDecryptionFactor computes trustee share x_i's contribution to
// decrypting c: GR^x_i. Combining every selected trustee's factor via
// Lagrange interpolation and dividing it out of MHR recovers the plaintext
// (§4.4.4).
func PartialDecryptionFactor(s Suite, share kyber.Scalar, c wire.ElGamalCiphertext) (kyber.Point, error) {
	gr, _, err := decodeCiphertext(s, c)
	if err != nil {
		return nil, err
	}
	return s.Point().Mul(share, gr), nil
}

// CombineFactors reconstructs the full decryption factor GR^x from each
// selected trustee's partial factor via Lagrange interpolation in the
// exponent, evaluated at x=0 using the trustees' 1-based positions as
// evaluation points.
func CombineFactors(s Suite, positions []wire.TrusteePosition, factors []kyber.Point) (kyber.Point, error) {
	if len(positions) != len(factors) {
		return nil, errors.New("crypto: positions/factors length mismatch")
	}
	combined := s.Point().Null()
	for i := range positions {
		lambda := lagrangeCoefficientAtZero(s, positions, i)
		combined = s.Point().Add(combined, s.Point().Mul(lambda, factors[i]))
	}
	return combined, nil
}

// lagrangeCoefficientAtZero computes the i-th Lagrange basis polynomial of
// positions evaluated at x=0: prod_{j != i} (0 - x_j) / (x_i - x_j).
func lagrangeCoefficientAtZero(s Suite, positions []wire.TrusteePosition, i int) kyber.Scalar {
	xi := s.Scalar().SetInt64(int64(positions[i]))
	num := s.Scalar().One()
	den := s.Scalar().One()
	for j, pj := range positions {
		if j == i {
			continue
		}
		xj := s.Scalar().SetInt64(int64(pj))
		num = s.Scalar().Mul(num, s.Scalar().Neg(xj))
		den = s.Scalar().Mul(den, s.Scalar().Sub(xi, xj))
	}
	return s.Scalar().Mul(num, s.Scalar().Inv(den))
}

// Decrypt divides a ciphertext's MHR component by the combined decryption
// factor, recovering the plaintext group element.
func Decrypt(s Suite, c wire.ElGamalCiphertext, factor kyber.Point) (kyber.Point, error) {
	_, mhr, err := decodeCiphertext(s, c)
	if err != nil {
		return nil, err
	}
	return s.Point().Sub(mhr, factor), nil
}

// EncodePlaintext embeds a message's bytes into a group element. Embedding
// capacity is limited by the curve's embed length; ballot encoding above
// the embed limit is the protocol manager's concern, not ours — each
// ciphertext carries one element.
func EncodePlaintext(s Suite, msg []byte) (kyber.Point, error) {
	return s.Point().Embed(msg, s.RandomStream()), nil
}

// DecodePlaintext extracts the embedded bytes from a group element produced
// by EncodePlaintext.
func DecodePlaintext(p kyber.Point) ([]byte, error) {
	data, err := p.Data()
	if err != nil {
		return nil, errors.Wrap(err, "crypto: decode embedded plaintext")
	}
	return data, nil
}
