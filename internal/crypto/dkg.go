package crypto

import (
	"crypto/cipher"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/pkg/wire"
)

// Dealing is one trustee's Feldman/Pedersen VSS dealing: a degree-(t-1)
// polynomial with its constant term as the dealer's secret contribution,
// publicly committed to coefficient-by-coefficient, and one share per
// recipient trustee evaluated at the recipient's 1-based position.
//
// This hand-rolled dealing implements exactly the Joint-Feldman
// construction kyber's share/dkg/pedersen and share/vss/pedersen packages
// automate, built directly on kyber's stable Group/Scalar/Point primitives
// rather than those packages' more elaborate stateful session objects —
// see DESIGN.md for why.
type Dealing struct {
	coefficients []kyber.Scalar
	Commitments  []kyber.Point
	Shares       []kyber.Scalar // index i = share for trustee position i+1
}

// Deal generates a fresh random dealing for threshold t over n trustees.
func Deal(s Suite, t, n int) Dealing {
	return deal(s, s.RandomStream(), t, n)
}

// DealFrom derives the dealing deterministically from seed: the same seed
// always yields the same polynomial. A trustee that posted commitments and
// then restarted re-derives the exact dealing behind them instead of
// re-persisting its secret coefficients — dealing fresh after a restart
// would produce shares inconsistent with the posted commitments and stall
// the session's DKG permanently.
func DealFrom(s Suite, seed []byte, t, n int) Dealing {
	return deal(s, s.XOF(seed), t, n)
}

func deal(s Suite, stream cipher.Stream, t, n int) Dealing {
	coeffs := make([]kyber.Scalar, t)
	for i := range coeffs {
		coeffs[i] = s.Scalar().Pick(stream)
	}
	commits := make([]kyber.Point, t)
	for i, c := range coeffs {
		commits[i] = s.Point().Mul(c, nil)
	}
	shares := make([]kyber.Scalar, n)
	for j := 1; j <= n; j++ {
		shares[j-1] = evalPoly(s, coeffs, j)
	}
	return Dealing{coefficients: coeffs, Commitments: commits, Shares: shares}
}

// evalPoly evaluates the polynomial with the given coefficients (lowest
// degree first) at integer point x.
func evalPoly(s Suite, coeffs []kyber.Scalar, x int) kyber.Scalar {
	result := s.Scalar().Zero()
	xs := s.Scalar().SetInt64(int64(x))
	xPow := s.Scalar().One()
	for _, c := range coeffs {
		term := s.Scalar().Mul(c, xPow)
		result = s.Scalar().Add(result, term)
		xPow = s.Scalar().Mul(xPow, xs)
	}
	return result
}

// PublicShareAt evaluates one dealer's commitment polynomial in the
// exponent at position x: prod_k (C_k)^(x^k). This is the publicly
// computable value g^(dealer's contribution to position x's share).
func PublicShareAt(s Suite, commitments []kyber.Point, x int) kyber.Point {
	xs := s.Scalar().SetInt64(int64(x))
	xPow := s.Scalar().One()
	sum := s.Point().Null()
	for _, c := range commitments {
		sum = s.Point().Add(sum, s.Point().Mul(xPow, c))
		xPow = s.Scalar().Mul(xPow, xs)
	}
	return sum
}

// CombinedPublicShareAt sums every dealer's PublicShareAt for position x,
// giving the publicly recomputable g^(combined share) for trustee x — used
// to verify a DecryptionFactors proof without learning the trustee's
// secret share (§4.4.4).
func CombinedPublicShareAt(s Suite, allDealersCommitments [][]kyber.Point, x int) kyber.Point {
	sum := s.Point().Null()
	for _, commitments := range allDealersCommitments {
		sum = s.Point().Add(sum, PublicShareAt(s, commitments, x))
	}
	return sum
}

// VerifyShare checks that share is consistent with the dealer's public
// commitments for recipient position x: g^share == prod_k (C_k)^(x^k). A
// mismatch means the receiving trustee must abstain rather than post
// PublicKeySigned (§4.4.2 tie-breaks).
func VerifyShare(s Suite, commitments []kyber.Point, x int, share kyber.Scalar) bool {
	expected := PublicShareAt(s, commitments, x)
	actual := s.Point().Mul(share, nil)
	return actual.Equal(expected)
}

// CombinedPublicKey sums the constant-term commitment (C_0) of every
// dealer's commitment set, in ascending signer-position order, producing
// the session's combined DKG public key element (§4.4.2: "Combined pk is
// computed from the sorted-by-signer-position set of commitments").
func CombinedPublicKey(s Suite, orderedConstantTerms []kyber.Point) kyber.Point {
	pk := s.Point().Null()
	for _, c := range orderedConstantTerms {
		pk = s.Point().Add(pk, c)
	}
	return pk
}

// CombinedShare sums the shares a trustee received from every dealer
// (including its own self-dealt share), producing its share of the
// combined secret.
func CombinedShare(s Suite, received []kyber.Scalar) kyber.Scalar {
	sum := s.Scalar().Zero()
	for _, sh := range received {
		sum = s.Scalar().Add(sum, sh)
	}
	return sum
}

// EncryptShareFor encrypts a single Feldman share for its recipient under a
// pairwise symmetric key, matching Shares' "encrypted secret shares for the
// other trustees (verifiable encryption under each recipient's key)"
// (§3.2). The share-encryption scheme is XSalsa20-Poly1305 via
// golang.org/x/crypto/nacl/secretbox-equivalent construction kept in
// sym.go, not re-derived here.
func EncryptShareFor(key [32]byte, share kyber.Scalar) ([]byte, error) {
	b, err := MarshalScalar(share)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: marshal share")
	}
	return sealSymmetric(key, b)
}

// DecryptShareFrom reverses EncryptShareFor.
func DecryptShareFrom(s Suite, key [32]byte, ciphertext []byte) (kyber.Scalar, error) {
	b, err := openSymmetric(key, ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: open share")
	}
	return s.UnmarshalScalar(b)
}

// Threshold returns t as an int for loop bounds.
func Threshold(t wire.Threshold) int { return int(t) }
